// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vistachat/vistachat/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

var seq atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}

// NewTestAccount creates an active account with unique email and username.
func NewTestAccount(t testing.TB) *model.Account {
	t.Helper()
	id := UniqueID("acct")
	return &model.Account{
		ID:           id,
		Email:        id + "@example.com",
		Username:     id,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestInteraction creates a record for accountID, or an anonymous one
// when accountID is empty.
func NewTestInteraction(t testing.TB, accountID string, createdAt time.Time) *model.Interaction {
	t.Helper()
	rec := &model.Interaction{
		ID:            UniqueID("rec"),
		UserInputText: "hello",
		AIResponse:    "hi there",
		ModelUsed:     "test-model",
		CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
	}
	if accountID == "" {
		rec.SessionID = UniqueID("anon")
		rec.IsAnonymous = true
		return rec
	}
	rec.SessionID = accountID
	rec.AccountID = &accountID
	return rec
}
