package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/clearcity/api/internal/auth"
	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/database"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/repository"
)

func setupUsers(t *testing.T) *repository.UserRepository {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DatabaseURL:    "sqlite://" + filepath.Join(t.TempDir(), "seed.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		DBLogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return repository.NewUserRepository(db)
}

func TestEnsureAdmin_CreatesAccount(t *testing.T) {
	users := setupUsers(t)
	hasher := auth.NewHasher(4)
	ctx := context.Background()

	if err := ensureAdmin(ctx, users, hasher, "root@x.ro", "pw", "Root"); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	admin, err := users.FindByEmail(ctx, "root@x.ro")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if admin.Role != model.RoleAdmin || admin.Level != model.AdminLevel {
		t.Errorf("Unexpected admin: %+v", admin)
	}
	if !hasher.Compare(admin.Password, "pw") {
		t.Error("Expected the password to be hashed and verifiable")
	}

	if err := ensureAdmin(ctx, users, hasher, "root@x.ro", "", ""); err != nil {
		t.Errorf("Expected re-running to be a no-op, got %v", err)
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	users := setupUsers(t)
	ctx := context.Background()
	users.Create(ctx, &model.User{Name: "Ana", Email: "ana@x.ro", Password: "h", Role: model.RoleUser, Level: 1})

	if err := ensureAdmin(ctx, users, auth.NewHasher(4), "ana@x.ro", "", ""); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	ana, _ := users.FindByEmail(ctx, "ana@x.ro")
	if ana.Role != model.RoleAdmin || ana.XP != model.AdminXP {
		t.Errorf("Expected promotion, got %+v", ana)
	}
}

func TestEnsureAdmin_RequiresPasswordForNewAccount(t *testing.T) {
	users := setupUsers(t)
	if err := ensureAdmin(context.Background(), users, auth.NewHasher(4), "new@x.ro", "", "New"); err == nil {
		t.Error("Expected an error without a password")
	}
}
