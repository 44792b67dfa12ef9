package main

import (
	"context"
	"flag"
	"log"
	"os"

	"rewards_backend/internal/db"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/reward"
	"rewards_backend/internal/service"
)

// Creates a user for local testing, grants the starter rewards and prints a token.
func main() {
	username := flag.String("username", "testuser", "username of the new user")
	teacher := flag.Bool("teacher", false, "create the user with the teacher role")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	users := repository.NewUserRepository(pool)

	u := &domain.User{Username: *username, Role: domain.RoleStudent}
	if *teacher {
		u.Role = domain.RoleTeacher
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create user failed: %v", err)
	}
	log.Printf("user created id=%d role=%s\n", u.ID, u.Role)

	granted, err := reward.NewRecorder(repository.NewRewardRepository(pool)).GrantStarter(ctx, u.ID)
	if err != nil {
		log.Fatalf("grant starter rewards: %v", err)
	}
	log.Printf("starter rewards granted=%d\n", len(granted))

	// verify read
	u2, err := users.GetByID(ctx, u.ID)
	if err != nil {
		log.Fatalf("get by id failed: %v", err)
	}
	log.Printf("fetched user id=%d username=%s level=%d created_at=%v\n", u2.ID, u2.Username, u2.Level, u2.CreatedAt)

	service.InitJWT(secret)
	token, err := service.GenerateJWT(u2.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
