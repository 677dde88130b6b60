// Command bootstrap-account creates an account in PostgreSQL, or logs in
// if it already exists, and prints a bearer token for it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/repository"
	"github.com/vistachat/vistachat/internal/service"
)

type output struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Created     bool   `json:"created"`
	AccessToken string `json:"access_token"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign bearer tokens")
		ttl         = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
		email       = flag.String("email", "admin@vistachat.local", "Account email")
		username    = flag.String("username", "admin", "Account username")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Account password")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" || *jwtSecret == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL, JWT_SECRET and a password are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	tokens, err := auth.NewTokenIssuer(*jwtSecret, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := service.NewAccountService(repo, auth.NewPasswordHasher(auth.DefaultParams), tokens, metrics.NewNoop(), logger)

	out := output{Email: strings.ToLower(*email), Username: *username, Created: true}
	out.AccessToken, err = accounts.Signup(ctx, service.SignupInput{
		Email:    *email,
		Username: *username,
		Password: *password,
	})
	if errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrUsernameTaken) {
		out.Created = false
		out.AccessToken, err = accounts.Login(ctx, *email, *password)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap account:", err)
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.AccessToken)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
