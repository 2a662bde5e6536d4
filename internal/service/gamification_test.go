package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clearcity/api/internal/model"
)

type mockXPStore struct {
	user     model.User
	levelSet []int
	addXPErr error
}

func (m *mockXPStore) AddXP(ctx context.Context, id int64, amount int) (*model.User, error) {
	if m.addXPErr != nil {
		return nil, m.addXPErr
	}
	m.user.XP += amount
	u := m.user
	return &u, nil
}

func (m *mockXPStore) SetLevel(ctx context.Context, id int64, level int) error {
	m.levelSet = append(m.levelSet, level)
	m.user.Level = level
	return nil
}

type mockAchievements struct {
	held  map[int]bool
	calls int
}

func (m *mockAchievements) Award(ctx context.Context, userID int64, a model.Achievement) (bool, error) {
	m.calls++
	if m.held[a.ID] {
		return false, nil
	}
	m.held[a.ID] = true
	return true, nil
}

func TestLevelForXP(t *testing.T) {
	tests := map[int]int{0: 1, 10: 1, 399: 1, 400: 2, 899: 2, 900: 3, 10000: 10}
	for xp, want := range tests {
		if got := LevelForXP(xp); got != want {
			t.Errorf("LevelForXP(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestReportAccepted_FirstReport(t *testing.T) {
	users := &mockXPStore{user: model.User{ID: 1, Role: model.RoleUser, Level: 1}}
	achievements := &mockAchievements{held: map[int]bool{}}
	g := NewGamification(users, achievements, 10)

	if err := g.ReportAccepted(context.Background(), 1, 1); err != nil {
		t.Fatalf("ReportAccepted failed: %v", err)
	}
	if users.user.XP != 10 {
		t.Errorf("Expected 10 XP, got %d", users.user.XP)
	}
	if !achievements.held[model.FirstReport.ID] {
		t.Error("Expected first report achievement")
	}
	if len(users.levelSet) != 0 {
		t.Errorf("Expected level untouched, got %v", users.levelSet)
	}

	g.ReportAccepted(context.Background(), 1, 2)
	if achievements.calls != 1 {
		t.Errorf("Expected no award attempt after the first report, got %d calls", achievements.calls)
	}
}

func TestReportAccepted_LevelUp(t *testing.T) {
	users := &mockXPStore{user: model.User{ID: 1, Role: model.RoleUser, Level: 1, XP: 390}}
	g := NewGamification(users, &mockAchievements{held: map[int]bool{}}, 10)

	g.ReportAccepted(context.Background(), 1, 5)
	if len(users.levelSet) != 1 || users.levelSet[0] != 2 {
		t.Errorf("Expected level 2, got %v", users.levelSet)
	}
}

func TestReportAccepted_AdminKeepsSentinelLevel(t *testing.T) {
	users := &mockXPStore{user: model.User{ID: 1, Role: model.RoleAdmin, Level: model.AdminLevel, XP: model.AdminXP}}
	g := NewGamification(users, &mockAchievements{held: map[int]bool{}}, 10)

	g.ReportAccepted(context.Background(), 1, 3)
	if len(users.levelSet) != 0 {
		t.Errorf("Expected admin level untouched, got %v", users.levelSet)
	}
}

func TestReportAccepted_XPFailureStillAwards(t *testing.T) {
	users := &mockXPStore{addXPErr: errors.New("boom")}
	achievements := &mockAchievements{held: map[int]bool{}}
	g := NewGamification(users, achievements, 10)

	if err := g.ReportAccepted(context.Background(), 1, 1); err == nil {
		t.Error("Expected the xp error to be reported")
	}
	if !achievements.held[model.FirstReport.ID] {
		t.Error("Expected achievement awarded despite xp failure")
	}
}
