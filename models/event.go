package models

// Event is a workshop, talk or meetup. Date is free text as entered.
type Event struct {
	Base `bson:",inline"`

	Name        string  `json:"name" bson:"name" gorm:"type:text;not null"`
	Date        string  `json:"date" bson:"date" gorm:"type:text;not null"`
	Description string  `json:"description" bson:"description" gorm:"type:text;not null"`
	Image       *string `json:"image" bson:"image" gorm:"type:text"`
}

func (Event) TableName() string {
	return "events"
}
