package models

import (
	"time"

	"gorm.io/gorm"
)

// Friendship is one accepted edge of the friend graph. Rows are stored once
// per pair; either side may be the viewer, so resolvers query both columns.
type Friendship struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_friendship_pair,unique" json:"user_id"`
	FriendID  uint           `gorm:"not null;index:idx_friendship_pair,unique" json:"friend_id"`
	Status    string         `gorm:"size:16;not null;index" json:"status"` // accepted | blocked
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User   User `gorm:"foreignKey:UserID" json:"-"`
	Friend User `gorm:"foreignKey:FriendID" json:"-"`
}

func (Friendship) TableName() string {
	return "friendships"
}

// FriendRequest is a pending invitation; accepting one creates a Friendship.
type FriendRequest struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FromUserID uint           `gorm:"not null;index:idx_request_pair,unique" json:"from_user_id"`
	ToUserID   uint           `gorm:"not null;index:idx_request_pair,unique;index" json:"to_user_id"`
	Status     string         `gorm:"size:16;not null;index" json:"status"` // pending | accepted | rejected
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"-"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"-"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}
