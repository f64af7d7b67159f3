package api

import (
	"net/http"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/models"
)

type eventHandler struct {
	submissions[*models.Event]
}

func newEventHandler(repo database.Collection[*models.Event], deps submissionDeps) eventHandler {
	h := newSubmissions("eventHandler", repo, deps)
	h.entity = "event"
	h.collection = "events"
	h.folder = "events"
	h.required = []string{"name", "description", "date"}
	h.fileFields = []string{"image"}

	return eventHandler{h}
}

// @Summary Get all events
// @Tags Events
// @Produce json
// @Success 200 {array} models.Event "List of events"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching events"
// @Router /api/events [get]
func (h eventHandler) getAllEvents() http.HandlerFunc {
	return h.list()
}

// @Summary Create event
// @Description The date is free text and is stored as given.
// @Tags Events
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param name formData string true "Event name"
// @Param description formData string true "Description"
// @Param date formData string true "Date"
// @Param image formData file false "Poster"
// @Success 201 {object} CreatedResponse "Created event"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating event"
// @Router /api/events [post]
func (h eventHandler) createEvent() http.HandlerFunc {
	return h.create(func(s *submission, image *string) (*models.Event, string) {
		event := &models.Event{
			Name:        s.value("name"),
			Date:        s.value("date"),
			Description: s.value("description"),
			Image:       image,
		}
		return event, event.Name
	})
}
