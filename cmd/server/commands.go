package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"logimatch/internal/model"
	jwtutil "logimatch/pkg/jwt"
)

func runMigrateCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}

	migrationDir := "/migrations"
	if _, statErr := os.Stat(migrationDir); statErr != nil {
		migrationDir = "./migrations"
	}

	if err := runMigrateUp("file://"+migrationDir, cfg.Database.URL); err != nil {
		return err
	}

	fmt.Println("migrations applied successfully")
	return nil
}

func runMigrateUp(sourceURL, databaseURL string) error {
	migrator, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}
	return nil
}

// runIssueTokenCommand signs an access token for local development. In
// production tokens come from the user platform.
func runIssueTokenCommand(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		userID string
		role   string
		ttl    time.Duration
	)
	fs.StringVar(&userID, "user", "", "user id")
	fs.StringVar(&role, "role", string(model.RoleUser), "user or admin")
	fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user is required")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != string(model.RoleUser) && role != string(model.RoleAdmin) {
		return fmt.Errorf("unsupported role %q", role)
	}
	if ttl <= 0 {
		return errors.New("ttl must be greater than 0")
	}

	privateKey, err := loadPrivateKey(cfg)
	if err != nil {
		return fmt.Errorf("load jwt private key failed: %w", err)
	}

	token, err := jwtutil.GenerateAccessToken(jwtutil.NewClaims(userID, role, ttl), privateKey)
	if err != nil {
		return fmt.Errorf("sign token failed: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health/ready")
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
