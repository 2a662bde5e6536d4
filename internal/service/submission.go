package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clearcity/api/internal/client"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/storage"
	"github.com/clearcity/api/internal/validator"
)

var (
	ErrLocationRequired = errors.New("location is required")
	ErrNotWaste         = errors.New("image does not appear to contain waste")
)

type ReportStore interface {
	Create(ctx context.Context, report *model.Report) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type Classifier interface {
	Classify(ctx context.Context, image []byte) (model.Classification, client.Outcome)
}

type ImageSaver interface {
	Save(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type Rewarder interface {
	ReportAccepted(ctx context.Context, userID int64, reportCount int64) error
}

type SubmitInput struct {
	UserID       int64
	Latitude     *float64
	Longitude    *float64
	LocationName *string
	Description  string
	Image        *validator.Image
}

type SubmitResult struct {
	Report         *model.Report
	Classification *model.Classification
	// Outcome and ClassifyDuration are zero when no image was sent.
	Outcome          client.Outcome
	ClassifyDuration time.Duration
}

type Submission struct {
	reports    ReportStore
	classifier Classifier
	images     ImageSaver
	rewards    Rewarder
}

func NewSubmission(reports ReportStore, classifier Classifier, images ImageSaver, rewards Rewarder) *Submission {
	return &Submission{reports: reports, classifier: classifier, images: images, rewards: rewards}
}

// Submit runs the report pipeline. A rejected image yields ErrNotWaste along
// with a result carrying the classification. Errors from the reward step are
// logged and do not fail the submission.
func (s *Submission) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return nil, ErrLocationRequired
	}

	result := &SubmitResult{}
	var imageURL *string

	if in.Image != nil {
		url, err := s.images.Save(ctx, storage.FolderReports, in.Image.Ext, in.Image.Data, in.Image.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}

		start := time.Now()
		classification, outcome := s.classifier.Classify(ctx, in.Image.Data)
		result.ClassifyDuration = time.Since(start)
		result.Outcome = outcome
		result.Classification = &classification

		if !classification.IsWaste {
			log.Printf("[Submission] rejected image from user %d: %s (%.2f, %s)",
				in.UserID, classification.WasteType, classification.Confidence, outcome)
			if err := s.images.Delete(ctx, url); err != nil {
				log.Printf("[Submission] failed to delete rejected image %s: %v", url, err)
			}
			return result, ErrNotWaste
		}
		imageURL = &url
	}

	report := &model.Report{
		UserID:       &in.UserID,
		Latitude:     *in.Latitude,
		Longitude:    *in.Longitude,
		LocationName: in.LocationName,
		Type:         model.UnclassifiedType,
		Description:  in.Description,
		ImageURL:     imageURL,
		Status:       model.StatusPending,
	}
	if result.Classification != nil {
		report.Type = result.Classification.WasteType
	}
	blob, err := result.Classification.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification: %w", err)
	}
	report.AIClassification = blob

	if err := s.reports.Create(ctx, report); err != nil {
		if imageURL != nil {
			if derr := s.images.Delete(ctx, *imageURL); derr != nil {
				log.Printf("[Submission] failed to delete image %s: %v", *imageURL, derr)
			}
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	result.Report = report

	count, err := s.reports.CountByUser(ctx, in.UserID)
	if err != nil {
		log.Printf("[Submission] failed to count reports for user %d: %v", in.UserID, err)
		count = 0
	}
	if err := s.rewards.ReportAccepted(ctx, in.UserID, count); err != nil {
		log.Printf("[Submission] report %d saved but rewards failed: %v", report.ID, err)
	}

	return result, nil
}
