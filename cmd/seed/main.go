package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/clearcity/api/internal/auth"
	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/database"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/repository"
)

func main() {
	email := flag.String("email", "", "Admin email")
	password := flag.String("password", "", "Admin password (only used when the account is created)")
	name := flag.String("name", "Administrator", "Admin display name")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	if err := ensureAdmin(ctx, users, auth.NewHasher(cfg.BcryptCost), *email, *password, *name); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
}

// ensureAdmin promotes an existing account or creates a new admin.
func ensureAdmin(ctx context.Context, users *repository.UserRepository, hasher *auth.Hasher, email, password, name string) error {
	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == model.RoleAdmin {
			log.Printf("%s is already an admin", email)
			return nil
		}
		if _, err := users.Promote(ctx, email); err != nil {
			return err
		}
		log.Printf("Promoted %s to admin", email)
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	if password == "" {
		return errors.New("-password is required to create a new admin")
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     model.RoleAdmin,
		Level:    model.AdminLevel,
		XP:       model.AdminXP,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("Created admin %s (id %d)", email, admin.ID)
	return nil
}
