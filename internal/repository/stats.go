package repository

import (
	"context"
	"time"

	"github.com/clearcity/api/internal/model"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// ResolutionSpan pairs a report's creation and resolution times.
type ResolutionSpan struct {
	CreatedAt  time.Time
	ResolvedAt time.Time
}

// StatsRepository serves the read-only aggregates behind the admin dashboard.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleUser).Count(&count).Error
	return count, err
}

func (r *StatsRepository) CountReports(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Report{}).Count(&count).Error
	return count, err
}

func (r *StatsRepository) ReportsByStatus(ctx context.Context) ([]StatusCount, error) {
	counts := []StatusCount{}
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}

func (r *StatsRepository) ReportsByType(ctx context.Context) ([]TypeCount, error) {
	counts := []TypeCount{}
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC, type").
		Scan(&counts).Error
	return counts, err
}

// CreatedSince returns creation times of reports filed at or after since.
func (r *StatsRepository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &times).Error
	return times, err
}

func (r *StatsRepository) ResolutionSpans(ctx context.Context) ([]ResolutionSpan, error) {
	var spans []ResolutionSpan
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("created_at, resolved_at").
		Where("resolved_at IS NOT NULL").
		Scan(&spans).Error
	return spans, err
}
