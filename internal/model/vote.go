package model

import "time"

// Vote is a single recorded choice for one role in one room. Editing a
// ballot deletes the old rows and inserts fresh ones, so the id of a logical
// vote changes across edits.
type Vote struct {
	ID            string    `gorm:"primaryKey;size:36"`
	RoomCode      string    `gorm:"index;not null;size:6"`
	VoterName     string    `gorm:"not null;size:256"`
	RoleName      string    `gorm:"not null;size:256"`
	CandidateName string    `gorm:"not null;size:256"`
	CreatedAt     time.Time `gorm:"not null"`
}
