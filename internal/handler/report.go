package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/clearcity/api/internal/middleware"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/service"
	"github.com/clearcity/api/internal/storage"
	"github.com/clearcity/api/internal/validator"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports    *repository.ReportRepository
	users      *repository.UserRepository
	submission *service.Submission
	images     storage.ImageStore
	validator  *validator.ImageValidator
}

func NewReportHandler(
	reports *repository.ReportRepository,
	users *repository.UserRepository,
	submission *service.Submission,
	images storage.ImageStore,
	v *validator.ImageValidator,
) *ReportHandler {
	return &ReportHandler{
		reports:    reports,
		users:      users,
		submission: submission,
		images:     images,
		validator:  v,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// List returns reports, newest first, optionally filtered by status, userId
// and type
func (h *ReportHandler) List(c *gin.Context) {
	filter := repository.ReportFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid userId")
			return
		}
		filter.UserID = &id
	}

	reports, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		log.Printf("Error fetching reports: %v", err)
		respondError(c, http.StatusInternalServerError, "Error fetching reports")
		return
	}

	c.JSON(http.StatusOK, reports)
}

// Create runs the submission pipeline for a multipart report
func (h *ReportHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	image, err := readImage(c, "image", h.validator)
	if err != nil {
		middleware.RecordSubmission("invalid")
		if respondUploadError(c, err) {
			return
		}
		log.Printf("Error reading upload: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid upload")
		return
	}

	result, err := h.submission.Submit(c.Request.Context(), service.SubmitInput{
		UserID:       userID,
		Latitude:     parseCoordinate(c.PostForm("latitude")),
		Longitude:    parseCoordinate(c.PostForm("longitude")),
		LocationName: optionalString(c.PostForm("location_name")),
		Description:  c.PostForm("description"),
		Image:        image,
	})
	if result != nil && result.Outcome != "" {
		middleware.RecordClassification(string(result.Outcome), result.ClassifyDuration)
	}

	switch {
	case err == nil:
		middleware.RecordSubmission("accepted")
		c.JSON(http.StatusCreated, gin.H{
			"report":         result.Report,
			"classification": result.Classification,
		})
	case errors.Is(err, service.ErrLocationRequired):
		middleware.RecordSubmission("invalid")
		respondError(c, http.StatusBadRequest, "Location is required")
	case errors.Is(err, service.ErrNotWaste):
		middleware.RecordSubmission("rejected")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Image does not appear to contain waste",
			"classification": result.Classification,
		})
	default:
		middleware.RecordSubmission("failed")
		log.Printf("Error creating report: %v", err)
		respondError(c, http.StatusInternalServerError, "Error creating report")
	}
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusNotFound, "Report not found")
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Report not found")
			return
		}
		log.Printf("Error fetching report %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Error fetching report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateStatus moves a report between pending, in_progress and resolved
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !model.ValidStatus(req.Status) {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}

	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusNotFound, "Report not found")
		return
	}
	userID, _ := middleware.UserID(c)

	report, err := h.reports.UpdateStatus(c.Request.Context(), id, req.Status, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Report not found")
			return
		}
		log.Printf("Error updating report %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Error updating report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// Delete removes a report and its photo. Only the reporter or an admin may
// delete.
func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusNotFound, "Report not found")
		return
	}
	ctx := c.Request.Context()
	userID, _ := middleware.UserID(c)

	report, err := h.reports.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Report not found")
			return
		}
		log.Printf("Error deleting report %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Error deleting report")
		return
	}

	owner := report.UserID != nil && *report.UserID == userID
	if !owner {
		role, err := h.users.Role(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Error deleting report %d: %v", id, err)
			respondError(c, http.StatusInternalServerError, "Error deleting report")
			return
		}
		if role != model.RoleAdmin {
			respondError(c, http.StatusForbidden, "Not authorized to delete this report")
			return
		}
	}

	if report.ImageURL != nil {
		if err := h.images.Delete(ctx, *report.ImageURL); err != nil {
			log.Printf("Error deleting image file %s: %v", *report.ImageURL, err)
		}
	}

	if err := h.reports.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Error deleting report %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Error deleting report")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
}
