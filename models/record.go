package models

import "time"

// Record is implemented by every collection entry. Stores call Stamp exactly
// once, right before the insert, to assign the id and creation time.
type Record interface {
	Stamp(id string, at time.Time)
	RecordID() string
	CreatedTime() time.Time
}

// Base carries the fields every record shares.
type Base struct {
	ID        string    `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" gorm:"not null;index:,sort:desc"`
}

func (b *Base) Stamp(id string, at time.Time) {
	b.ID = id
	b.CreatedAt = at
}

func (b *Base) RecordID() string {
	return b.ID
}

func (b *Base) CreatedTime() time.Time {
	return b.CreatedAt
}
