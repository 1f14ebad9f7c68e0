package model

import "time"

// ParkingRecord represents one saved parking event.
//
// A record is immutable after creation except for LeftAt, which is set
// exactly once when the user marks the spot as vacated.
type ParkingRecord struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;size:36;not null" json:"user_id"`
	Level      string     `gorm:"size:64;not null" json:"level"`
	SlotNumber string     `gorm:"size:64;not null" json:"slot_number"`
	Latitude   float64    `gorm:"not null" json:"latitude"`
	Longitude  float64    `gorm:"not null" json:"longitude"`
	Elevation  float64    `gorm:"not null" json:"elevation"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
	LeftAt     *time.Time `json:"left_at"`
}
