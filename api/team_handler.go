package api

import (
	"net/http"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/models"
)

type teamHandler struct {
	submissions[*models.TeamMember]
}

func newTeamHandler(repo database.Collection[*models.TeamMember], deps submissionDeps) teamHandler {
	h := newSubmissions("teamHandler", repo, deps)
	h.entity = "team member"
	h.collection = "team members"
	h.folder = "team"
	h.required = []string{"name", "role"}
	h.fileFields = []string{"image"}

	return teamHandler{h}
}

// @Summary Get the team
// @Tags Team
// @Produce json
// @Success 200 {array} models.TeamMember "List of team members"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching team members"
// @Router /api/team [get]
func (h teamHandler) getTeam() http.HandlerFunc {
	return h.list()
}

// @Summary Add a team member
// @Tags Team
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param name formData string true "Name"
// @Param role formData string true "Role"
// @Param github formData string false "GitHub link"
// @Param linkedin formData string false "LinkedIn link"
// @Param image formData file false "Profile picture"
// @Success 201 {object} CreatedResponse "Created team member"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating team member"
// @Router /api/team [post]
func (h teamHandler) createTeamMember() http.HandlerFunc {
	return h.create(func(s *submission, image *string) (*models.TeamMember, string) {
		member := &models.TeamMember{
			Name:     s.value("name"),
			Role:     s.value("role"),
			Github:   s.optional("github"),
			Linkedin: s.optional("linkedin"),
			Image:    image,
		}
		return member, member.Name
	})
}
