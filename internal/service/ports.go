package service

import (
	"context"

	"github.com/vistachat/vistachat/internal/model"
)

// Model generates a reply for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt model.Prompt) (string, error)
	// Name is stored on every record as model_used.
	Name() string
}

// ImageUploader stores image bytes and returns a durable URL. An empty
// URL with a nil error means the image was accepted but not stored.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, mimeType, filename string) (string, error)
}

// TokenVerifier turns a bearer token into the account id it asserts.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// TokenIssuer signs bearer tokens for an account.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
}

// InteractionStore appends and lists interaction records.
type InteractionStore interface {
	AppendInteraction(ctx context.Context, rec *model.Interaction) error
	ListInteractionsByAccount(ctx context.Context, accountID string, limit int) ([]*model.Interaction, error)
}
