package api

import (
	"time"

	"github.com/ml4e-club/ml4e-site-backend/database"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(database database.Database, deps submissionDeps, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		achievementHandler: newAchievementHandler(database.AchievementRepo(), deps),
		projectHandler:     newProjectHandler(database.ProjectRepo(), deps),
		eventHandler:       newEventHandler(database.EventRepo(), deps),
		teamHandler:        newTeamHandler(database.TeamMemberRepo(), deps),
		healthHandler:      newHealthHandler(database.Manager(), startupTime),
	}
}
