package repository

import (
	"context"
	"time"

	"github.com/clearcity/api/internal/model"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ReportFilter narrows a listing. Empty fields are ignored; set fields are
// combined with AND.
type ReportFilter struct {
	Status string
	UserID *int64
	Type   string
}

func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) withUser(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("reports r").
		Select("r.*, u.name AS user_name, u.profile_image AS user_image").
		Joins("LEFT JOIN users u ON r.user_id = u.id")
}

func (r *ReportRepository) List(ctx context.Context, f ReportFilter) ([]model.ReportWithUser, error) {
	q := r.withUser(ctx)
	if f.Status != "" {
		q = q.Where("r.status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("r.user_id = ?", *f.UserID)
	}
	if f.Type != "" {
		q = q.Where("r.type = ?", f.Type)
	}

	reports := []model.ReportWithUser{}
	if err := q.Order("r.created_at DESC, r.id DESC").Scan(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *ReportRepository) Get(ctx context.Context, id int64) (*model.ReportWithUser, error) {
	var reports []model.ReportWithUser
	if err := r.withUser(ctx).Where("r.id = ?", id).Limit(1).Scan(&reports).Error; err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return &reports[0], nil
}

func (r *ReportRepository) Find(ctx context.Context, id int64) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

// UpdateStatus moves a report to status. Entering resolved records who
// resolved it and when; leaving resolved keeps those fields as they were.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id int64, status string, actorID int64) (*model.Report, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == model.StatusResolved {
		updates["resolved_at"] = now
		updates["resolved_by"] = actorID
	}

	result := r.db.WithContext(ctx).Model(&model.Report{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Find(ctx, id)
}

func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Report{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Report{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ImageURLs lists every stored report image reference.
func (r *ReportRepository) ImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Where("image_url IS NOT NULL").
		Pluck("image_url", &urls).Error
	return urls, err
}
