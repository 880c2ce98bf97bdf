package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"task_manager/internal/db"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	"task_manager/internal/service"

	"golang.org/x/crypto/bcrypt"
)

// Registers a demo user (or logs in if it already exists) and prints a token.
func main() {
	name := flag.String("name", "Tester", "user name")
	email := flag.String("email", "tester@example.com", "user email")
	password := flag.String("password", "password", "user password")
	flag.Parse()

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
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	auth := service.NewAuthService(repository.NewUserRepository(pool), service.NewTokenService(secret, 0), bcrypt.DefaultCost)

	res, err := auth.Register(ctx, *name, *email, *password)
	if errors.Is(err, domain.ErrEmailTaken) {
		log.Printf("user %s already exists, logging in", *email)
		res, err = auth.Login(ctx, *email, *password)
	}
	if err != nil {
		log.Fatalf("create user failed: %v", err)
	}

	log.Printf("user id=%s name=%s email=%s created_at=%v", res.User.ID, res.User.Name, res.User.Email, res.User.CreatedAt)
	log.Printf("token=%s", res.Token)
}
