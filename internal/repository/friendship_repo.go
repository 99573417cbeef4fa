package repository

import (
	"carmeet/internal/domain"
	"carmeet/internal/models"

	"gorm.io/gorm"
)

type FriendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func (r *FriendshipRepository) Create(f *models.Friendship) error {
	return r.db.Create(f).Error
}

// AcceptedFriendIDs returns the other party of every accepted friendship
// where the viewer is either side. The result is duplicate-free and never
// contains the viewer.
func (r *FriendshipRepository) AcceptedFriendIDs(viewerID uint) ([]uint, error) {
	var rows []models.Friendship
	err := r.db.
		Where("status = ?", domain.FriendshipAccepted).
		Where("user_id = ? OR friend_id = ?", viewerID, viewerID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		other := row.FriendID
		if other == viewerID {
			other = row.UserID
		}
		if other == viewerID {
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

// AreFriends reports whether an accepted friendship exists between the two
// users, in either direction.
func (r *FriendshipRepository) AreFriends(a, b uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Friendship{}).
		Where("status = ?", domain.FriendshipAccepted).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
