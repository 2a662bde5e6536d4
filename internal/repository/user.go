package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearcity/api/internal/model"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ProfileUpdate holds the optional fields of a profile edit. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name      *string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Location == nil && p.Latitude == nil && p.Longitude == nil
}

type Profile struct {
	ID              int64                   `json:"id"`
	Name            string                  `json:"name"`
	Email           string                  `json:"email"`
	Role            string                  `json:"role"`
	Level           int                     `json:"level"`
	XP              int                     `json:"xp"`
	ProfileImage    *string                 `json:"profile_image"`
	Location        *string                 `json:"location"`
	Latitude        *float64                `json:"latitude"`
	Longitude       *float64                `json:"longitude"`
	CreatedAt       time.Time               `json:"created_at"`
	TotalReports    int64                   `json:"total_reports"`
	ResolvedReports int64                   `json:"resolved_reports"`
	PendingReports  int64                   `json:"pending_reports"`
	Achievements    []model.UserAchievement `json:"achievements"`
}

type LeaderboardEntry struct {
	Rank         int     `json:"rank" gorm:"-"`
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Level        int     `json:"level"`
	XP           int     `json:"xp" gorm:"column:xp"`
	ProfileImage *string `json:"profile_image"`
	ReportCount  int64   `json:"report_count"`
}

type UserStats struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Level           int       `json:"level"`
	XP              int       `json:"xp" gorm:"column:xp"`
	ProfileImage    *string   `json:"profile_image"`
	CreatedAt       time.Time `json:"created_at"`
	TotalReports    int64     `json:"total_reports"`
	ResolvedReports int64     `json:"resolved_reports"`
}

type AdminSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type RoleChange struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Role reads the current role straight from the store so that role changes
// take effect even for tokens issued earlier.
func (r *UserRepository) Role(ctx context.Context, id int64) (string, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select("id", "role").First(&user, id).Error; err != nil {
		return "", notFound(err)
	}
	return user.Role, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*model.User, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Location != nil {
		updates["location"] = *p.Location
	}
	if p.Latitude != nil {
		updates["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		updates["longitude"] = *p.Longitude
	}

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// SetProfileImage stores the new image reference and returns the previous one.
func (r *UserRepository) SetProfileImage(ctx context.Context, id int64, imageURL string) (*model.User, *string, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	previous := user.ProfileImage

	err = r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"profile_image": imageURL, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, nil, err
	}
	user.ProfileImage = &imageURL
	return user, previous, nil
}

// AddXP increments the counter in a single statement and returns the fresh row.
func (r *UserRepository) AddXP(ctx context.Context, id int64, amount int) (*model.User, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("xp", gorm.Expr("xp + ?", amount))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) SetLevel(ctx context.Context, id int64, level int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn("level", level).Error
}

func (r *UserRepository) Profile(ctx context.Context, id int64) (*Profile, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Level:        user.Level,
		XP:           user.XP,
		ProfileImage: user.ProfileImage,
		Location:     user.Location,
		Latitude:     user.Latitude,
		Longitude:    user.Longitude,
		CreatedAt:    user.CreatedAt,
		Achievements: []model.UserAchievement{},
	}

	var counts []StatusCount
	err = r.db.WithContext(ctx).Model(&model.Report{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", id).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	for _, c := range counts {
		profile.TotalReports += c.Count
		switch c.Status {
		case model.StatusResolved:
			profile.ResolvedReports = c.Count
		case model.StatusPending:
			profile.PendingReports = c.Count
		}
	}

	err = r.db.WithContext(ctx).Where("user_id = ?", id).
		Order("unlocked_at DESC").
		Find(&profile.Achievements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	return profile, nil
}

func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	entries := []LeaderboardEntry{}
	err := r.db.WithContext(ctx).Table("users u").
		Select("u.id, u.name, u.level, u.xp, u.profile_image, COUNT(r.id) AS report_count").
		Joins("LEFT JOIN reports r ON r.user_id = u.id").
		Where("u.role = ?", model.RoleUser).
		Group("u.id, u.name, u.level, u.xp, u.profile_image").
		Order("u.xp DESC, u.id ASC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (r *UserRepository) ListWithStats(ctx context.Context) ([]UserStats, error) {
	users := []UserStats{}
	err := r.db.WithContext(ctx).Table("users u").
		Select(`u.id, u.name, u.email, u.role, u.level, u.xp, u.profile_image, u.created_at,
			COUNT(r.id) AS total_reports,
			COALESCE(SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END), 0) AS resolved_reports`, model.StatusResolved).
		Joins("LEFT JOIN reports r ON r.user_id = u.id").
		Group("u.id, u.name, u.email, u.role, u.level, u.xp, u.profile_image, u.created_at").
		Order("u.xp DESC, u.id ASC").
		Scan(&users).Error
	return users, err
}

func (r *UserRepository) ListAdmins(ctx context.Context) ([]AdminSummary, error) {
	admins := []AdminSummary{}
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("id, name, email, created_at").
		Where("role = ?", model.RoleAdmin).
		Order("created_at DESC").
		Scan(&admins).Error
	return admins, err
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// Promote makes the user an admin and resets progression to the admin
// sentinel values.
func (r *UserRepository) Promote(ctx context.Context, email string) (*RoleChange, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).
		Updates(map[string]interface{}{
			"role":       model.RoleAdmin,
			"level":      model.AdminLevel,
			"xp":         model.AdminXP,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.roleChange(ctx, email)
}

// Demote returns an admin to the user role. The admin count is checked before
// the update; progression is not restored.
func (r *UserRepository) Demote(ctx context.Context, email string) (*RoleChange, error) {
	admins, err := r.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if admins <= 1 {
		return nil, ErrLastAdmin
	}

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND role = ?", email, model.RoleAdmin).
		Updates(map[string]interface{}{"role": model.RoleUser, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.roleChange(ctx, email)
}

// ProfileImages lists every stored profile image reference.
func (r *UserRepository) ProfileImages(ctx context.Context) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("profile_image IS NOT NULL").
		Pluck("profile_image", &urls).Error
	return urls, err
}

func (r *UserRepository) roleChange(ctx context.Context, email string) (*RoleChange, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &RoleChange{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
