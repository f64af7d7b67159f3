package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// MaxMembers bounds the member list attached to one achievement.
const MaxMembers = 6

// Member is a person credited on an achievement. It is embedded, not related.
type Member struct {
	Name    string `json:"name" bson:"name"`
	Profile string `json:"profile" bson:"profile"`
}

// Achievement represents a competition result, certificate or hackathon win
type Achievement struct {
	Base `bson:",inline"`

	Title     string                      `json:"title" bson:"title" gorm:"type:text;not null"`
	Github    *string                     `json:"github" bson:"github" gorm:"type:text"`
	Deployed  *string                     `json:"deployed" bson:"deployed" gorm:"type:text"`
	EventDate *string                     `json:"eventDate" bson:"eventDate" gorm:"type:text"`
	Members   datatypes.JSONSlice[Member] `json:"members" bson:"members"`
	Image     *string                     `json:"image" bson:"image" gorm:"type:text"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// MarshalJSON always renders members as an array.
func (a Achievement) MarshalJSON() ([]byte, error) {
	type plain Achievement
	out := plain(a)
	if out.Members == nil {
		out.Members = datatypes.JSONSlice[Member]{}
	}
	return json.Marshal(out)
}
