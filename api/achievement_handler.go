package api

import (
	"net/http"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/models"
)

type achievementHandler struct {
	submissions[*models.Achievement]
}

func newAchievementHandler(repo database.Collection[*models.Achievement], deps submissionDeps) achievementHandler {
	h := newSubmissions("achievementHandler", repo, deps)
	h.entity = "achievement"
	h.collection = "achievements"
	h.folder = "achievements"
	h.required = []string{"title"}
	h.fileFields = []string{"image", "certificate"}

	return achievementHandler{h}
}

// getAllAchievements lists every achievement
// @Summary Get all achievements
// @Description Retrieves all achievements, newest first
// @Tags Achievements
// @Produce json
// @Success 200 {array} models.Achievement "List of achievements"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching achievements"
// @Router /api/achievements [get]
func (h achievementHandler) getAllAchievements() http.HandlerFunc {
	return h.list()
}

// createAchievement stores a submitted achievement
// @Summary Create achievement
// @Description Creates an achievement. Members are a JSON array of {name, profile}, at most six.
// @Tags Achievements
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param title formData string true "Title"
// @Param github formData string false "GitHub link"
// @Param deployed formData string false "Deployed link"
// @Param eventDate formData string false "Event date"
// @Param members formData string false "Members as JSON"
// @Param image formData file false "Certificate image"
// @Success 201 {object} CreatedResponse "Created achievement"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating achievement"
// @Router /api/achievements [post]
func (h achievementHandler) createAchievement() http.HandlerFunc {
	return h.create(func(s *submission, image *string) (*models.Achievement, string) {
		achievement := &models.Achievement{
			Title:     s.value("title"),
			Github:    s.optional("github"),
			Deployed:  s.optional("deployed"),
			EventDate: s.optional("eventDate"),
			Members:   s.members,
			Image:     image,
		}
		return achievement, achievement.Title
	})
}
