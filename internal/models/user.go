package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the auth account. Map-facing fields live on Profile, keyed by the
// same ID, so the map layer never touches credentials.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Profile *Profile `gorm:"foreignKey:ID;references:ID" json:"profile,omitempty"`
}

// Profile is the public identity shown on map markers. ID equals the owning
// user's ID; every field a marker renders is nullable because a user may
// never have filled it in.
type Profile struct {
	ID                 uint           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username           *string        `gorm:"uniqueIndex;size:64" json:"username"`
	DisplayName        *string        `gorm:"size:128" json:"display_name"`
	PhotoURL           *string        `gorm:"size:512" json:"photo_url"`
	LocationVisibility string         `gorm:"size:16;not null;default:everyone" json:"location_visibility"` // everyone | friends | nobody
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Profile) TableName() string {
	return "profiles"
}
