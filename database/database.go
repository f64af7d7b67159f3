package database

import (
	"github.com/ml4e-club/ml4e-site-backend/models"
)

type Database struct {
	manager         *Manager
	achievementRepo Collection[*models.Achievement]
	projectRepo     Collection[*models.Project]
	eventRepo       Collection[*models.Event]
	teamMemberRepo  Collection[*models.TeamMember]
}

// New builds one collection per entity on top of the manager's backend.
func New(manager *Manager) Database {
	if manager.Backend() == BackendMongo {
		return Database{
			manager:         manager,
			achievementRepo: newMongoCollection[*models.Achievement](manager, models.Achievement{}.TableName()),
			projectRepo:     newMongoCollection[*models.Project](manager, models.Project{}.TableName()),
			eventRepo:       newMongoCollection[*models.Event](manager, models.Event{}.TableName()),
			teamMemberRepo:  newMongoCollection[*models.TeamMember](manager, models.TeamMember{}.TableName()),
		}
	}

	return Database{
		manager:         manager,
		achievementRepo: newGormCollection[*models.Achievement](manager),
		projectRepo:     newGormCollection[*models.Project](manager),
		eventRepo:       newGormCollection[*models.Event](manager),
		teamMemberRepo:  newGormCollection[*models.TeamMember](manager),
	}
}

// Accessor methods for each collection

func (d Database) Manager() *Manager {
	return d.manager
}

func (d Database) AchievementRepo() Collection[*models.Achievement] {
	return d.achievementRepo
}

func (d Database) ProjectRepo() Collection[*models.Project] {
	return d.projectRepo
}

func (d Database) EventRepo() Collection[*models.Event] {
	return d.eventRepo
}

func (d Database) TeamMemberRepo() Collection[*models.TeamMember] {
	return d.teamMemberRepo
}
