package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/clearcity/api/internal/repository"
)

const activityDays = 7

type StatsReader interface {
	CountUsers(ctx context.Context) (int64, error)
	CountReports(ctx context.Context) (int64, error)
	ReportsByStatus(ctx context.Context) ([]repository.StatusCount, error)
	ReportsByType(ctx context.Context) ([]repository.TypeCount, error)
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
	ResolutionSpans(ctx context.Context) ([]repository.ResolutionSpan, error)
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type Stats struct {
	TotalUsers        int64                    `json:"totalUsers"`
	TotalReports      int64                    `json:"totalReports"`
	ReportsByStatus   []repository.StatusCount `json:"reportsByStatus"`
	ReportsByType     []repository.TypeCount   `json:"reportsByType"`
	RecentActivity    []DailyCount             `json:"recentActivity"`
	AvgResolutionTime float64                  `json:"avgResolutionTime"`
}

type StatsService struct {
	reader StatsReader
	now    func() time.Time
}

func NewStatsService(reader StatsReader) *StatsService {
	return &StatsService{reader: reader, now: time.Now}
}

func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	var (
		stats Stats
		err   error
	)

	if stats.TotalUsers, err = s.reader.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalReports, err = s.reader.CountReports(ctx); err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if stats.ReportsByStatus, err = s.reader.ReportsByStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to group by status: %w", err)
	}
	if stats.ReportsByType, err = s.reader.ReportsByType(ctx); err != nil {
		return nil, fmt.Errorf("failed to group by type: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	created, err := s.reader.CreatedSince(ctx, today.AddDate(0, 0, -activityDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	stats.RecentActivity = DailyActivity(created, now.Location())

	spans, err := s.reader.ResolutionSpans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolution times: %w", err)
	}
	stats.AvgResolutionTime = AverageResolutionHours(spans)

	return &stats, nil
}

// DailyActivity counts timestamps per calendar day in loc. Only days with at
// least one entry appear, oldest first.
func DailyActivity(times []time.Time, loc *time.Location) []DailyCount {
	counts := make(map[string]int64)
	for _, t := range times {
		counts[t.In(loc).Format("2006-01-02")]++
	}

	days := make([]DailyCount, 0, len(counts))
	for date, n := range counts {
		days = append(days, DailyCount{Date: date, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// AverageResolutionHours averages created->resolved durations in hours,
// rounded to one decimal. It is 0 when nothing has been resolved.
func AverageResolutionHours(spans []repository.ResolutionSpan) float64 {
	if len(spans) == 0 {
		return 0
	}
	var total float64
	for _, s := range spans {
		total += s.ResolvedAt.Sub(s.CreatedAt).Hours()
	}
	return math.Round(total/float64(len(spans))*10) / 10
}
