package repository

import (
	"context"

	"github.com/clearcity/api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Award records the achievement for the user. It reports false when the user
// already held it.
func (r *AchievementRepository) Award(ctx context.Context, userID int64, a model.Achievement) (bool, error) {
	row := model.UserAchievement{
		UserID:                 userID,
		AchievementID:          a.ID,
		AchievementTitle:       a.Title,
		AchievementDescription: a.Description,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AchievementRepository) ListByUser(ctx context.Context, userID int64) ([]model.UserAchievement, error) {
	achievements := []model.UserAchievement{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at DESC").Find(&achievements).Error
	return achievements, err
}
