package models

type TeamMember struct {
	Base `bson:",inline"`

	Name     string  `json:"name" bson:"name" gorm:"type:text;not null"`
	Role     string  `json:"role" bson:"role" gorm:"type:text;not null"`
	Github   *string `json:"github" bson:"github" gorm:"type:text"`
	Linkedin *string `json:"linkedin" bson:"linkedin" gorm:"type:text"`
	Image    *string `json:"image" bson:"image" gorm:"type:text"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
