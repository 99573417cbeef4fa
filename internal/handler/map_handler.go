package handler

import (
	"net/http"
	"time"

	"carmeet/internal/livemap"
	"carmeet/internal/middleware"

	"github.com/gin-gonic/gin"
)

type MapHandler struct {
	sessions *livemap.Manager
}

func NewMapHandler(sessions *livemap.Manager) *MapHandler {
	return &MapHandler{sessions: sessions}
}

// GetMap returns the viewer's render-ready marker list. The first call for a
// session triggers the initial refresh.
func (h *MapHandler) GetMap(c *gin.Context) {
	userID := middleware.GetUserID(c)
	session := h.sessions.Session(userID)
	if len(session.Cache().RelevantIDs()) == 0 {
		if err := session.Refresh(false); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": session.Cache().Err()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"markers":      session.Markers(time.Now()),
		"relevant_ids": session.Cache().RelevantIDs(),
		"error":        session.Cache().Err(),
	})
}

// RefreshMap re-resolves friends and nearby users. force=true reloads rows
// already cached.
func (h *MapHandler) RefreshMap(c *gin.Context) {
	userID := middleware.GetUserID(c)
	force := c.Query("force") == "true"
	session := h.sessions.Session(userID)
	if err := session.Refresh(force); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": session.Cache().Err()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"markers":      session.Markers(time.Now()),
		"relevant_ids": session.Cache().RelevantIDs(),
	})
}
