package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/clearcity/api/internal/cache"
	"github.com/clearcity/api/internal/middleware"
	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/storage"
	"github.com/clearcity/api/internal/validator"
	"github.com/gin-gonic/gin"
)

const leaderboardSize = 100

// JSONCache is the subset of the Redis cache used by handlers.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

type UserHandler struct {
	users     *repository.UserRepository
	images    storage.ImageStore
	validator *validator.ImageValidator
	cache     JSONCache
}

// NewUserHandler builds the handler. cache may be nil.
func NewUserHandler(users *repository.UserRepository, images storage.ImageStore, v *validator.ImageValidator, cache JSONCache) *UserHandler {
	return &UserHandler{
		users:     users,
		images:    images,
		validator: v,
		cache:     cache,
	}
}

type UpdateProfileRequest struct {
	Name      *string  `json:"name"`
	Location  *string  `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type ProfileImageResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"profile_image"`
}

func (h *UserHandler) Profile(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	profile, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error fetching profile: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies the fields present in the body. Empty strings and
// zero coordinates are treated as absent.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := repository.ProfileUpdate{
		Name:      nonEmpty(req.Name),
		Location:  nonEmpty(req.Location),
		Latitude:  nonZero(req.Latitude),
		Longitude: nonZero(req.Longitude),
	}
	if update.Empty() {
		respondError(c, http.StatusBadRequest, "No fields to update")
		return
	}

	userID, _ := middleware.UserID(c)
	user, err := h.users.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error updating profile: %v", err)
		respondError(c, http.StatusInternalServerError, "Error updating profile")
		return
	}
	invalidateLeaderboard(c.Request.Context(), h.cache)

	c.JSON(http.StatusOK, user)
}

// UploadImage replaces the caller's profile picture. The previous picture is
// removed when this server stored it.
func (h *UserHandler) UploadImage(c *gin.Context) {
	image, err := readImage(c, "profileImage", h.validator)
	if err != nil {
		if respondUploadError(c, err) {
			return
		}
		log.Printf("Error reading upload: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid upload")
		return
	}
	if image == nil {
		respondError(c, http.StatusBadRequest, "No image provided")
		return
	}

	ctx := c.Request.Context()
	userID, _ := middleware.UserID(c)

	url, err := h.images.Save(ctx, storage.FolderProfiles, image.Ext, image.Data, image.ContentType)
	if err != nil {
		log.Printf("Error uploading profile image: %v", err)
		respondError(c, http.StatusInternalServerError, "Error uploading profile image")
		return
	}

	user, previous, err := h.users.SetProfileImage(ctx, userID, url)
	if err != nil {
		if derr := h.images.Delete(ctx, url); derr != nil {
			log.Printf("Error deleting new image %s: %v", url, derr)
		}
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error uploading profile image: %v", err)
		respondError(c, http.StatusInternalServerError, "Error uploading profile image")
		return
	}

	if previous != nil {
		if err := h.images.Delete(ctx, *previous); err != nil && !errors.Is(err, storage.ErrForeignURL) {
			log.Printf("Error deleting old image %s: %v", *previous, err)
		}
	}
	invalidateLeaderboard(ctx, h.cache)

	c.JSON(http.StatusOK, ProfileImageResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
	})
}

// Leaderboard serves the top users by XP, from cache when possible
func (h *UserHandler) Leaderboard(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached []repository.LeaderboardEntry
		err := h.cache.GetJSON(ctx, cache.LeaderboardKey, &cached)
		if err == nil {
			middleware.RecordLeaderboardCache(true)
			c.JSON(http.StatusOK, cached)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("Leaderboard cache read failed: %v", err)
		}
		middleware.RecordLeaderboardCache(false)
	}

	entries, err := h.users.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		log.Printf("Error fetching leaderboard: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching leaderboard")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, cache.LeaderboardKey, entries); err != nil {
			log.Printf("Leaderboard cache write failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, entries)
}

func invalidateLeaderboard(ctx context.Context, c JSONCache) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, cache.LeaderboardKey); err != nil {
		log.Printf("Leaderboard cache invalidation failed: %v", err)
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonZero(f *float64) *float64 {
	if f == nil || *f == 0 {
		return nil
	}
	return f
}
