package model

import "time"

// PushSubscription holds a browser push subscription watching one room.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	RoomCode  string    `gorm:"index;not null;size:6"`
	CreatedAt time.Time `gorm:"not null"`
}
