package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	users *repository.UserRepository
	stats *service.StatsService
	cache JSONCache
}

// NewAdminHandler builds the handler. cache may be nil.
func NewAdminHandler(users *repository.UserRepository, stats *service.StatsService, cache JSONCache) *AdminHandler {
	return &AdminHandler{users: users, stats: stats, cache: cache}
}

// GetStats returns dashboard statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Collect(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching statistics: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers returns every user with report totals, highest XP first
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListWithStats(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching users: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.users.ListAdmins(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching admins: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching admins")
		return
	}
	c.JSON(http.StatusOK, admins)
}

func (h *AdminHandler) Promote(c *gin.Context) {
	email := c.Param("email")

	user, err := h.users.Promote(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error promoting user %s: %v", email, err)
		respondError(c, http.StatusInternalServerError, "Error promoting user")
		return
	}
	log.Printf("User %s promoted to admin", email)
	invalidateLeaderboard(c.Request.Context(), h.cache)

	c.JSON(http.StatusOK, user)
}

// Demote refuses to remove the last remaining admin
func (h *AdminHandler) Demote(c *gin.Context) {
	email := c.Param("email")

	user, err := h.users.Demote(c.Request.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLastAdmin):
			respondError(c, http.StatusBadRequest, "Cannot demote the last admin")
		case errors.Is(err, repository.ErrNotFound):
			respondError(c, http.StatusNotFound, "Admin not found")
		default:
			log.Printf("Error demoting admin %s: %v", email, err)
			respondError(c, http.StatusInternalServerError, "Error demoting admin")
		}
		return
	}
	log.Printf("Admin %s demoted to user", email)
	invalidateLeaderboard(c.Request.Context(), h.cache)

	c.JSON(http.StatusOK, user)
}
