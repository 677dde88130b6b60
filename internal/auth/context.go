package auth

import (
	"context"

	"github.com/vistachat/vistachat/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// accountContextKey is the context key for the verified account.
	accountContextKey contextKey = "account"
)

// ContextWithAccount adds the verified account to the context.
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext retrieves the verified account from the context.
// Returns nil if not present.
func AccountFromContext(ctx context.Context) *model.Account {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	if !ok {
		return nil
	}
	return account
}

// AccountIDFromContext is a convenience function to get the account ID from context.
// Returns empty string if not authenticated.
func AccountIDFromContext(ctx context.Context) string {
	account := AccountFromContext(ctx)
	if account == nil {
		return ""
	}
	return account.ID
}
