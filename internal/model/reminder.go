package model

import "time"

// Reminder marks that a departure reminder was delivered for a record.
// Keeping this in its own table leaves ParkingRecord untouched after
// creation.
type Reminder struct {
	RecordID string    `gorm:"primaryKey;size:36"`
	SentAt   time.Time `gorm:"not null"`
}
