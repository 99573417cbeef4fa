package handler

import (
	"errors"
	"net/http"
	"strconv"

	"carmeet/internal/domain"
	"carmeet/internal/middleware"
	"carmeet/internal/models"
	"carmeet/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FriendHandler struct {
	friendshipRepo *repository.FriendshipRepository
	requestRepo    *repository.FriendRequestRepository
	profileRepo    *repository.ProfileRepository
}

func NewFriendHandler(friendshipRepo *repository.FriendshipRepository, requestRepo *repository.FriendRequestRepository, profileRepo *repository.ProfileRepository) *FriendHandler {
	return &FriendHandler{friendshipRepo: friendshipRepo, requestRepo: requestRepo, profileRepo: profileRepo}
}

// ListFriends returns the viewer's accepted friends with their profiles.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ids, err := h.friendshipRepo.AcceptedFriendIDs(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend lookup failed"})
		return
	}
	profiles, err := h.profileRepo.GetByIDs(ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"friend_ids": ids, "profiles": profiles})
}

// SendRequest creates a pending friend request to another user.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		ToUserID uint `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ToUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot friend yourself"})
		return
	}
	already, err := h.friendshipRepo.AreFriends(userID, req.ToUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend lookup failed"})
		return
	}
	if already {
		c.JSON(http.StatusConflict, gin.H{"error": "already friends"})
		return
	}
	fr, err := h.requestRepo.Create(userID, req.ToUserID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
		return
	}
	c.JSON(http.StatusCreated, fr)
}

// ListPending returns pending requests addressed to the viewer, newest
// first.
func (h *FriendHandler) ListPending(c *gin.Context) {
	userID := middleware.GetUserID(c)
	reqs, err := h.requestRepo.PendingFor(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// Respond accepts or rejects a pending request; accepting creates the
// friendship edge.
func (h *FriendHandler) Respond(c *gin.Context) {
	userID := middleware.GetUserID(c)
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"` // accepted | rejected
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != domain.RequestAccepted && req.Status != domain.RequestRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted or rejected"})
		return
	}
	fr, err := h.requestRepo.Respond(uint(requestID), userID, req.Status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "respond failed"})
		return
	}
	if req.Status == domain.RequestAccepted {
		f := &models.Friendship{
			UserID:   fr.FromUserID,
			FriendID: fr.ToUserID,
			Status:   domain.FriendshipAccepted,
		}
		if err := h.friendshipRepo.Create(f); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "friendship create failed"})
			return
		}
	}
	c.JSON(http.StatusOK, fr)
}
