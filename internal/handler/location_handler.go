package handler

import (
	"net/http"
	"time"

	"carmeet/internal/livemap"
	"carmeet/internal/middleware"
	"carmeet/internal/models"
	"carmeet/internal/repository"
	"carmeet/internal/stream"
	"carmeet/internal/ws"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	locRepo  *repository.LocationRepository
	broker   stream.Broker
	sessions *livemap.Manager
	hub      *ws.Hub
}

func NewLocationHandler(locRepo *repository.LocationRepository, broker stream.Broker, sessions *livemap.Manager, hub *ws.Hub) *LocationHandler {
	return &LocationHandler{locRepo: locRepo, broker: broker, sessions: sessions, hub: hub}
}

// UpdateMyLocation upserts the viewer's fix, publishes the change event for
// every other session's sink, and folds it straight into the viewer's own
// cache so their marker moves without the realtime round trip.
func (h *LocationHandler) UpdateMyLocation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	// Pointer bindings so a fix on the equator or prime meridian binds.
	var req struct {
		Lat     *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
		Lng     *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
		Heading *float64 `json:"heading"`
		Speed   *float64 `json:"speed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := models.UserLocation{
		UserID:    userID,
		Lat:       *req.Lat,
		Lng:       *req.Lng,
		Heading:   req.Heading,
		Speed:     req.Speed,
		UpdatedAt: time.Now(),
	}
	if err := h.locRepo.Upsert(&loc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.broker.Publish(stream.Event{Op: stream.OpUpdate, Row: loc})

	if session, ok := h.sessions.Peek(userID); ok {
		session.Cache().SetSelfLocation(loc)
		ws.PushMarkers(h.hub, userID, session.Markers(time.Now()))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LocationHandler) GetMyLocation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	loc, err := h.locRepo.GetByUserID(userID)
	if err != nil || loc == nil {
		c.JSON(http.StatusOK, gin.H{"lat": nil, "lng": nil})
		return
	}
	c.JSON(http.StatusOK, loc)
}
