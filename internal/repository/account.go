package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vistachat/vistachat/internal/model"
)

// Constraint names from migrations/00001_accounts.sql.
const (
	constraintEmail    = "accounts_email_key"
	constraintUsername = "accounts_username_key"
)

const accountColumns = `id, email, username, display_name, date_of_birth, password_hash, is_active, created_at`

// CreateAccount inserts a new account.
// Returns ErrEmailExists or ErrUsernameExists on a uniqueness conflict.
func (r *Repository) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.DisplayName,
		account.DateOfBirth,
		account.PasswordHash,
		account.IsActive,
		account.CreatedAt,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getAccount(ctx, "id", id)
}

// GetAccountByEmail retrieves an account by email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getAccount(ctx, "email", email)
}

// GetAccountByUsername retrieves an account by username.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getAccount(ctx, "username", username)
}

// getAccount looks up one account by a unique column. column is never user input.
func (r *Repository) getAccount(ctx context.Context, column, value string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1`

	var a model.Account
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.DisplayName,
		&a.DateOfBirth,
		&a.PasswordHash,
		&a.IsActive,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by %s: %w", column, err)
	}

	return &a, nil
}

// uniqueViolation maps a PostgreSQL unique_violation to the matching
// sentinel, or returns nil for any other error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case constraintUsername:
		return ErrUsernameExists
	default:
		return ErrEmailExists
	}
}
