package model

import "time"

// UserAchievement records that a user unlocked an achievement. The pair
// (user_id, achievement_id) is unique so repeated awards are no-ops.
type UserAchievement struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID                 int64     `gorm:"not null;uniqueIndex:idx_user_achievements_user_achievement,priority:1" json:"-"`
	AchievementID          int       `gorm:"not null;uniqueIndex:idx_user_achievements_user_achievement,priority:2" json:"achievement_id"`
	AchievementTitle       string    `gorm:"not null;size:255" json:"achievement_title"`
	AchievementDescription string    `gorm:"type:text" json:"achievement_description"`
	UnlockedAt             time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

type Achievement struct {
	ID          int
	Title       string
	Description string
}

// FirstReport is unlocked by a user's first accepted report.
var FirstReport = Achievement{
	ID:          1,
	Title:       "Primul Pas",
	Description: "Trimite prima ta sesizare",
}
