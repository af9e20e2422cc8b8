package model

import "time"

// Room is a voting session identified by a short share code.
//
// CandidatesJSON stores either a flat JSON array (one list shared by every
// role, the pre-multi-role format) or a JSON object keyed by role name. The
// candidates package decodes both forms into one canonical shape.
type Room struct {
	Code           string     `gorm:"primaryKey;size:6"`
	CreatedAt      time.Time  `gorm:"not null"`
	ClosedAt       *time.Time `gorm:"index"`
	CandidatesJSON *string    `gorm:"column:candidates_json"`
	RolesJSON      string     `gorm:"column:roles_json;not null;default:'[\"General\"]'"`
	// No column defaults here: GORM skips zero-value fields that carry a
	// default tag on insert, which would silently flip false back to true.
	// Defaulting for absent request fields happens at the API layer.
	AllowWriteIns  bool `gorm:"not null"`
	AllowAnonymous bool `gorm:"not null"`

	// Associations
	Votes []Vote `gorm:"foreignKey:RoomCode;references:Code"`
}
