package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/clearcity/api/internal/model"
)

type XPStore interface {
	AddXP(ctx context.Context, id int64, amount int) (*model.User, error)
	SetLevel(ctx context.Context, id int64, level int) error
}

type AchievementStore interface {
	Award(ctx context.Context, userID int64, a model.Achievement) (bool, error)
}

// LevelForXP maps XP onto the level curve where reaching level n takes
// n*n*100 XP.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor(math.Sqrt(float64(xp) / 100)))
	if level < 1 {
		return 1
	}
	return level
}

type Gamification struct {
	users        XPStore
	achievements AchievementStore
	xpPerReport  int
}

func NewGamification(users XPStore, achievements AchievementStore, xpPerReport int) *Gamification {
	return &Gamification{users: users, achievements: achievements, xpPerReport: xpPerReport}
}

// ReportAccepted rewards a persisted report. reportCount is the user's report
// count including the new one. Every step runs even if an earlier one fails.
func (g *Gamification) ReportAccepted(ctx context.Context, userID int64, reportCount int64) error {
	var errs []error

	user, err := g.users.AddXP(ctx, userID, g.xpPerReport)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to award xp: %w", err))
	} else if user.Role == model.RoleUser {
		if level := LevelForXP(user.XP); level != user.Level {
			if err := g.users.SetLevel(ctx, userID, level); err != nil {
				errs = append(errs, fmt.Errorf("failed to update level: %w", err))
			} else {
				log.Printf("[Gamification] user %d reached level %d", userID, level)
			}
		}
	}

	if reportCount == 1 {
		awarded, err := g.achievements.Award(ctx, userID, model.FirstReport)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to award achievement: %w", err))
		} else if awarded {
			log.Printf("[Gamification] user %d unlocked %q", userID, model.FirstReport.Title)
		}
	}

	return errors.Join(errs...)
}
