package repository

import (
	"errors"

	"carmeet/internal/domain"
	"carmeet/internal/models"

	"gorm.io/gorm"
)

var ErrRequestExists = errors.New("friend request already pending")

type FriendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(db *gorm.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db: db}
}

// Create inserts a pending request unless one already exists for the pair.
func (r *FriendRequestRepository) Create(fromID, toID uint) (*models.FriendRequest, error) {
	var count int64
	err := r.db.Model(&models.FriendRequest{}).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", fromID, toID, domain.RequestPending).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrRequestExists
	}
	req := &models.FriendRequest{
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     domain.RequestPending,
	}
	if err := r.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// PendingFor lists pending requests addressed to the user, newest first.
func (r *FriendRequestRepository) PendingFor(toID uint) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := r.db.
		Where("to_user_id = ? AND status = ?", toID, domain.RequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// Respond sets the request status; only the recipient may respond.
func (r *FriendRequestRepository) Respond(requestID, toID uint, status string) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.Where("id = ? AND to_user_id = ?", requestID, toID).First(&req).Error
	if err != nil {
		return nil, err
	}
	req.Status = status
	if err := r.db.Save(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}
