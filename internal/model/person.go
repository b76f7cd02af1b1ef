package model

import "time"

// Person is the slice of the platform's member profile this subsystem needs:
// a display name for titles and departure notices, and a last-activity
// timestamp for 1:1 presence.
type Person struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Pseudo       string     `gorm:"size:128;not null" json:"pseudo"`
	LastActiveAt *time.Time `gorm:"column:last_active_at" json:"lastActiveAt,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Person) TableName() string {
	return "people"
}
