package repository

import (
	"carmeet/internal/models"
	"carmeet/pkg/geo"

	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Upsert(loc *models.UserLocation) error {
	return r.db.Save(loc).Error
}

func (r *LocationRepository) GetByUserID(userID uint) (*models.UserLocation, error) {
	var loc models.UserLocation
	err := r.db.Where("user_id = ?", userID).First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetByUserIDs fetches the latest fix for every user in the set. Users with
// no fix are simply absent from the result.
func (r *LocationRepository) GetByUserIDs(ids []uint) ([]models.UserLocation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var locs []models.UserLocation
	err := r.db.Where("user_id IN ?", ids).Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// WithinBox returns all fixes inside the bounding box. This is the cheap
// index-friendly pre-filter; callers refine with the exact great-circle
// distance, since the box over-covers near its corners.
func (r *LocationRepository) WithinBox(box geo.BoundingBox) ([]models.UserLocation, error) {
	var locs []models.UserLocation
	err := r.db.
		Where("lat BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("lng BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}
