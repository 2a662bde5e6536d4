package database

import (
	"path/filepath"
	"testing"

	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/model"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:    "sqlite://" + filepath.Join(t.TempDir(), "clearcity.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		DBLogLevel:     "silent",
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer Close(db)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	for _, table := range []interface{}{&model.User{}, &model.Report{}, &model.UserAchievement{}} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table for %T", table)
		}
	}
}

func TestLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"ERROR":  logger.Error,
		"info":   logger.Info,
		"":       logger.Warn,
		"bogus":  logger.Warn,
	}
	for in, want := range tests {
		if got := LogLevel(in); got != want {
			t.Errorf("LogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
