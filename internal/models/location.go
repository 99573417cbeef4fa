package models

import "time"

// UserLocation is a user's most recent fix. One row per user: upserts on
// UserID replace the prior row, so `locations` is always the latest known
// position, not a track history.
// Using separate lat/lng columns for portability and Haversine queries.
type UserLocation struct {
	UserID    uint     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Lat       float64  `gorm:"type:decimal(10,8);not null;index:idx_locations_lat_lng" json:"lat"`
	Lng       float64  `gorm:"type:decimal(11,8);not null;index:idx_locations_lat_lng" json:"lng"`
	Heading   *float64 `gorm:"type:decimal(8,3)" json:"heading,omitempty"`
	Speed     *float64 `gorm:"type:decimal(8,3)" json:"speed,omitempty"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (UserLocation) TableName() string {
	return "locations"
}
