package models

// Project represents a club project with its links
type Project struct {
	Base `bson:",inline"`

	Name        string  `json:"name" bson:"name" gorm:"type:text;not null"`
	TechStack   string  `json:"techStack" bson:"techStack" gorm:"type:text;not null"`
	Description string  `json:"description" bson:"description" gorm:"type:text;not null"`
	Github      string  `json:"github" bson:"github" gorm:"type:text;not null"`
	Deployed    string  `json:"deployed" bson:"deployed" gorm:"type:text;not null"`
	Image       *string `json:"image" bson:"image" gorm:"type:text"`
}

func (Project) TableName() string {
	return "projects"
}
