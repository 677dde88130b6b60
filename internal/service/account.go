package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository"
)

const (
	maxUsernameLength = 50
	minPasswordLength = 8
	maxPasswordLength = 128
)

// SignupInput is the data needed to create an account.
type SignupInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName *string
	DateOfBirth *time.Time
}

// AccountService handles signup and login.
type AccountService struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(accounts AccountStore, hasher PasswordHasher, tokens TokenIssuer, recorder metrics.Recorder, logger *slog.Logger) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Signup creates an active account and returns a bearer token for it.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (string, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return "", err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > maxUsernameLength || strings.Contains(username, "@") {
		return "", fmt.Errorf("%w: username must be 1-%d characters without '@'", ErrInvalidSignup, maxUsernameLength)
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return "", fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidSignup, minPasswordLength, maxPasswordLength)
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(s.now()) {
		return "", fmt.Errorf("%w: date of birth is in the future", ErrInvalidSignup)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	var displayName *string
	if in.DisplayName != nil {
		if name := strings.TrimSpace(*in.DisplayName); name != "" {
			displayName = &name
		}
	}

	account := &model.Account{
		ID:           ulid.Make().String(),
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return "", ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameExists):
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	s.metrics.IncSignup()
	s.logger.InfoContext(ctx, "account created", "account_id", account.ID)

	return s.tokens.Issue(account.ID)
}

// Login checks a password for an email or username and returns a bearer
// token. Unknown, inactive and wrong-password cases are indistinguishable.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", ErrInvalidCredentials
	}

	var (
		account *model.Account
		err     error
	)
	if strings.Contains(identifier, "@") {
		account, err = s.accounts.GetAccountByEmail(ctx, strings.ToLower(identifier))
	} else {
		account, err = s.accounts.GetAccountByUsername(ctx, identifier)
	}
	if err != nil {
		s.metrics.IncLogin(metrics.LoginFailure)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable", "account_id", account.ID, "error", err)
	}
	if !ok || !account.IsActive {
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", ErrInvalidCredentials
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return s.tokens.Issue(account.ID)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidSignup)
	}
	return email, nil
}
