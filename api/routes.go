package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes mounts the public reads and the guarded creates
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Get("/healthz", handlers.healthHandler.check())

		r.Route("/api", func(r chi.Router) {
			r.Get("/achievements", handlers.achievementHandler.getAllAchievements())
			r.Get("/projects", handlers.projectHandler.getAllProjects())
			r.Get("/events", handlers.eventHandler.getAllEvents())
			r.Get("/team", handlers.teamHandler.getTeam())

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.authenticate)

				r.Post("/achievements", handlers.achievementHandler.createAchievement())
				r.Post("/projects", handlers.projectHandler.createProject())
				r.Post("/events", handlers.eventHandler.createEvent())
				r.Post("/team", handlers.teamHandler.createTeamMember())
			})
		})
	})
}
