package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/client"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/logger"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
	"golang.org/x/term"
)

func main() {
	var (
		baseURL    string
		username   string
		sessionDir string
		logout     bool
	)
	defaultDir := filepath.Join(os.TempDir(), "tooltrack")
	if dir, err := os.UserConfigDir(); err == nil {
		defaultDir = filepath.Join(dir, "tooltrack")
	}

	flag.StringVar(&baseURL, "url", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&username, "username", "", "Login name")
	flag.StringVar(&sessionDir, "session-dir", defaultDir, "Directory holding the stored session")
	flag.BoolVar(&logout, "logout", false, "End the stored session instead of signing in")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := client.NewFileStore(sessionDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	session := client.NewSession(store)
	api := client.New(baseURL, session, client.WithLogger(log))

	if logout {
		if _, err := session.Restore(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to read stored session")
		}
		if err := api.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("Server logout failed, local session cleared")
		}
		fmt.Println("Signed out.")
		return
	}

	if username == "" {
		fmt.Println("Error: -username is required")
		os.Exit(2)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}

	flow := client.NewLoginFlow(api, navigation.NewResolver(log), log)
	printRoute := navigation.NavigatorFunc(func(route string) {
		fmt.Printf("Landing page: %s\n", route)
	})

	if _, err := flow.Run(ctx, username, string(bytePassword), printRoute); err != nil {
		var authErr *apperr.AuthError
		if errors.As(err, &authErr) {
			fmt.Println("Error: invalid credentials")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Login failed")
	}
	fmt.Printf("Session stored in %s\n", store.Path())
}
