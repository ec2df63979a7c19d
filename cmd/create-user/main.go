package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/database"
	"github.com/stemsi/tooltrack-backend/internal/logger"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		username string
		name     string
		role     string
	)
	flag.StringVar(&username, "username", "", "Login name (prompted when empty)")
	flag.StringVar(&name, "name", "", "Display name (prompted when empty)")
	flag.StringVar(&role, "role", string(model.RoleAdmin), "Role: admin, manager or user")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// No Redis: a brand new account has no sessions to revoke.
	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, nil, userRepo)
	userService := service.NewUserService(userRepo, authService, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create User ===")

	username = promptIfEmpty(reader, username, "Enter Username: ")
	if username == "" {
		fmt.Println("Error: Username is required")
		os.Exit(1)
	}
	name = promptIfEmpty(reader, name, "Enter Name: ")
	if name == "" {
		name = username
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := userService.Create(ctx, &model.CreateUserRequest{
		Username: username,
		Name:     name,
		Password: password,
		Role:     strings.ToLower(strings.TrimSpace(role)),
	})
	if err != nil {
		var verr *apperr.ValidationError
		switch {
		case errors.As(err, &verr):
			fmt.Printf("Error: %v\n", verr)
		case errors.Is(err, repository.ErrDuplicateUsername):
			fmt.Printf("Error: username %q is already taken\n", username)
		default:
			log.Fatal().Err(err).Msg("Failed to create user")
		}
		os.Exit(1)
	}

	fmt.Printf("\nSuccess! User '%s' (%s) created with ID: %d\n", user.Username, user.Role, user.ID)
}

func promptIfEmpty(reader *bufio.Reader, current, prompt string) string {
	if current != "" {
		return strings.TrimSpace(current)
	}
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
