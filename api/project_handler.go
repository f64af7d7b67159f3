package api

import (
	"net/http"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/models"
)

type projectHandler struct {
	submissions[*models.Project]
}

func newProjectHandler(repo database.Collection[*models.Project], deps submissionDeps) projectHandler {
	h := newSubmissions("projectHandler", repo, deps)
	h.entity = "project"
	h.collection = "projects"
	h.folder = "projects"
	h.required = []string{"name", "techStack", "description", "github", "deployed"}
	h.fileFields = []string{"image", "screenshot"}

	return projectHandler{h}
}

// getAllProjects retrieves all projects
// @Summary Get all projects
// @Description Retrieves all projects from the database, newest first
// @Tags Projects
// @Produce json
// @Success 200 {array} models.Project "List of projects"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching projects"
// @Router /api/projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return h.list()
}

// createProject creates a new project
// @Summary Create project
// @Description Creates a new project with an optional screenshot
// @Tags Projects
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param name formData string true "Project name"
// @Param techStack formData string true "Tech stack"
// @Param description formData string true "Description"
// @Param github formData string true "GitHub link"
// @Param deployed formData string true "Deployed link"
// @Param image formData file false "Screenshot"
// @Success 201 {object} CreatedResponse "Created project"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating project"
// @Router /api/projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return h.create(func(s *submission, image *string) (*models.Project, string) {
		project := &models.Project{
			Name:        s.value("name"),
			TechStack:   s.value("techStack"),
			Description: s.value("description"),
			Github:      s.value("github"),
			Deployed:    s.value("deployed"),
			Image:       image,
		}
		return project, project.Name
	})
}
