package model

import (
	"time"

	"gorm.io/datatypes"
)

// Status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// UnclassifiedType is stored when a report is submitted without a photo.
const UnclassifiedType = "Unclassified"

type Report struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           *int64         `gorm:"index" json:"user_id"`
	Latitude         float64        `gorm:"not null" json:"latitude"`
	Longitude        float64        `gorm:"not null" json:"longitude"`
	LocationName     *string        `gorm:"size:255" json:"location_name"`
	Type             string         `gorm:"not null;default:'Unclassified';size:100;index" json:"type"`
	Description      string         `gorm:"type:text" json:"description"`
	ImageURL         *string        `json:"image_url"`
	AIClassification datatypes.JSON `gorm:"column:ai_classification" json:"ai_classification"`
	Status           string         `gorm:"not null;default:'pending';size:20;index;check:chk_reports_status,status IN ('pending','in_progress','resolved')" json:"status"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ResolvedAt       *time.Time     `json:"resolved_at"`
	ResolvedBy       *int64         `json:"resolved_by"`
}

func (Report) TableName() string {
	return "reports"
}

// ReportWithUser is a report joined with its reporter's public profile.
type ReportWithUser struct {
	Report
	UserName  *string `json:"user_name"`
	UserImage *string `json:"user_image"`
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}
