package model

import "time"

// Role values
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Sentinel progression assigned on promotion to admin.
const (
	AdminLevel = 99
	AdminXP    = 9999
)

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	Email        string    `gorm:"not null;uniqueIndex;size:255" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:'user';size:20;index" json:"role"`
	Level        int       `gorm:"not null;default:1" json:"level"`
	XP           int       `gorm:"column:xp;not null;default:0" json:"xp"`
	ProfileImage *string   `json:"profile_image"`
	Location     *string   `gorm:"size:255" json:"location"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
