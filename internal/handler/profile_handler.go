package handler

import (
	"net/http"
	"strconv"
	"strings"

	"carmeet/internal/domain"
	"carmeet/internal/middleware"
	"carmeet/internal/models"
	"carmeet/internal/repository"
	"carmeet/pkg/cloudinary"
	"carmeet/pkg/imagecache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileHandler struct {
	profileRepo *repository.ProfileRepository
	cloud       cloudinary.Client
	prefetch    *imagecache.Prefetcher
}

func NewProfileHandler(profileRepo *repository.ProfileRepository, cloud cloudinary.Client, prefetch *imagecache.Prefetcher) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo, cloud: cloud, prefetch: prefetch}
}

func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, err := h.profileRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetByID serves the profile card shown when a marker is tapped.
func (h *ProfileHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.profileRepo.GetByID(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no profile found for this user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Username           *string `json:"username"`
		DisplayName        *string `json:"display_name"`
		LocationVisibility *string `json:"location_visibility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.profileRepo.GetByID(userID)
	if err != nil {
		p = &models.Profile{ID: userID}
	}
	if req.Username != nil {
		p.Username = req.Username
	}
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	if req.LocationVisibility != nil {
		switch *req.LocationVisibility {
		case domain.VisibilityEveryone, domain.VisibilityFriends, domain.VisibilityNobody:
			p.LocationVisibility = *req.LocationVisibility
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location_visibility"})
			return
		}
	}
	if err := h.profileRepo.Upsert(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UploadPhoto stores the avatar in Cloudinary, saves the optimized URL on
// the profile, and warms it so the first marker render hits a hot cache.
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID := middleware.GetUserID(c)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	folder := "CarMeet/avatars/" + strconv.FormatUint(uint64(userID), 10)
	publicID := "img_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	url, _, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	p, err := h.profileRepo.GetByID(userID)
	if err != nil {
		p = &models.Profile{ID: userID}
	}
	p.PhotoURL = &url
	if err := h.profileRepo.Upsert(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.prefetch.Prefetch(url)
	c.JSON(http.StatusOK, gin.H{"photo_url": url})
}
