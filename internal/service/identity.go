package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository"
)

// CredentialVerifier resolves bearer credentials to accounts. Every
// failure collapses into "no identity"; it never returns an error.
type CredentialVerifier struct {
	tokens   TokenVerifier
	accounts AccountStore
	logger   *slog.Logger
}

// NewCredentialVerifier creates a CredentialVerifier.
func NewCredentialVerifier(tokens TokenVerifier, accounts AccountStore, logger *slog.Logger) *CredentialVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialVerifier{tokens: tokens, accounts: accounts, logger: logger}
}

// Verify returns the id of the account the credential refers to.
func (v *CredentialVerifier) Verify(ctx context.Context, credential string) (string, bool) {
	account, ok := v.VerifyAccount(ctx, credential)
	if !ok {
		return "", false
	}
	return account.ID, true
}

// VerifyAccount is Verify returning the whole account.
// Missing, malformed, expired or claimless tokens and deleted or
// inactive accounts all yield false.
func (v *CredentialVerifier) VerifyAccount(ctx context.Context, credential string) (*model.Account, bool) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, false
	}

	accountID, err := v.tokens.Verify(credential)
	if err != nil {
		v.logger.DebugContext(ctx, "bearer credential rejected", "error", err)
		return nil, false
	}

	account, err := v.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			v.logger.WarnContext(ctx, "account lookup failed, treating caller as anonymous", "error", err)
		}
		return nil, false
	}
	if !account.IsActive {
		return nil, false
	}

	return account, true
}

// newSessionID mints anonymous session ids.
var newSessionID = uuid.NewString

// ResolveIdentity derives the session identity for one request.
func ResolveIdentity(accountID string, ok bool) model.SessionIdentity {
	if ok && accountID != "" {
		return model.SessionIdentity{
			Kind:      model.Authenticated,
			AccountID: accountID,
			SessionID: accountID,
		}
	}
	return model.SessionIdentity{
		Kind:      model.Anonymous,
		SessionID: newSessionID(),
	}
}
