// Package firestore stores accounts and interaction records in Cloud
// Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository"
)

// Collection names.
const (
	colUsers     = "users"
	colEmails    = "user_emails"
	colUsernames = "usernames"
	colHistory   = "chat_history"
)

// Store implements the account and interaction stores on Firestore.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads a missing document to check connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(colUsers).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type accountDoc struct {
	Email        string     `firestore:"email"`
	Username     string     `firestore:"username"`
	DisplayName  *string    `firestore:"name"`
	DateOfBirth  *time.Time `firestore:"dob"`
	PasswordHash string     `firestore:"hashed_password"`
	IsActive     bool       `firestore:"is_active"`
	CreatedAt    time.Time  `firestore:"created_at"`
}

type claimDoc struct {
	AccountID string `firestore:"account_id"`
}

type interactionDoc struct {
	SessionID     string    `firestore:"session_id"`
	UserID        *string   `firestore:"user_id"`
	IsAnonymous   bool      `firestore:"is_anonymous"`
	UserInputText string    `firestore:"user_input_text"`
	AIResponse    string    `firestore:"ai_response_text"`
	ImageURL      *string   `firestore:"image_url"`
	ModelUsed     string    `firestore:"model_used"`
	Timestamp     time.Time `firestore:"timestamp"`
}

// ─────────────────────────────────────────
// Accounts
// ─────────────────────────────────────────

// CreateAccount writes the account plus one claim document per unique
// field in a single transaction.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	emailRef := s.client.Collection(colEmails).Doc(auth.QuickHash(account.Email))
	usernameRef := s.client.Collection(colUsernames).Doc(auth.QuickHash(account.Username))
	accountRef := s.client.Collection(colUsers).Doc(account.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := ensureAbsent(tx, emailRef, repository.ErrEmailExists); err != nil {
			return err
		}
		if err := ensureAbsent(tx, usernameRef, repository.ErrUsernameExists); err != nil {
			return err
		}

		claim := claimDoc{AccountID: account.ID}
		if err := tx.Create(emailRef, claim); err != nil {
			return err
		}
		if err := tx.Create(usernameRef, claim); err != nil {
			return err
		}
		return tx.Create(accountRef, accountDoc{
			Email:        account.Email,
			Username:     account.Username,
			DisplayName:  account.DisplayName,
			DateOfBirth:  account.DateOfBirth,
			PasswordHash: account.PasswordHash,
			IsActive:     account.IsActive,
			CreatedAt:    account.CreatedAt,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) || errors.Is(err, repository.ErrUsernameExists) {
			return err
		}
		return fmt.Errorf("firestore CreateAccount: %w", err)
	}
	return nil
}

func ensureAbsent(tx *firestore.Transaction, ref *firestore.DocumentRef, conflict error) error {
	_, err := tx.Get(ref)
	if err == nil {
		return conflict
	}
	if status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

// GetAccountByID returns the account stored under id.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	snap, err := s.client.Collection(colUsers).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("firestore GetAccountByID: %w", err)
	}
	return decodeAccount(snap)
}

// GetAccountByEmail resolves the email claim document, then the account.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.getByClaim(ctx, colEmails, email)
}

// GetAccountByUsername resolves the username claim document, then the account.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getByClaim(ctx, colUsernames, username)
}

func (s *Store) getByClaim(ctx context.Context, collection, value string) (*model.Account, error) {
	snap, err := s.client.Collection(collection).Doc(auth.QuickHash(value)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("firestore get %s claim: %w", collection, err)
	}

	var claim claimDoc
	if err := snap.DataTo(&claim); err != nil {
		return nil, fmt.Errorf("decode claimDoc: %w", err)
	}
	return s.GetAccountByID(ctx, claim.AccountID)
}

func decodeAccount(snap *firestore.DocumentSnapshot) (*model.Account, error) {
	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode accountDoc: %w", err)
	}
	return &model.Account{
		ID:           snap.Ref.ID,
		Email:        doc.Email,
		Username:     doc.Username,
		DisplayName:  doc.DisplayName,
		DateOfBirth:  doc.DateOfBirth,
		PasswordHash: doc.PasswordHash,
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// ─────────────────────────────────────────
// Interactions
// ─────────────────────────────────────────

// AppendInteraction creates one document per call.
func (s *Store) AppendInteraction(ctx context.Context, rec *model.Interaction) error {
	_, err := s.client.Collection(colHistory).Doc(rec.ID).Create(ctx, interactionDoc{
		SessionID:     rec.SessionID,
		UserID:        rec.AccountID,
		IsAnonymous:   rec.IsAnonymous,
		UserInputText: rec.UserInputText,
		AIResponse:    rec.AIResponse,
		ImageURL:      rec.ImageURL,
		ModelUsed:     rec.ModelUsed,
		Timestamp:     rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("firestore AppendInteraction: %w", err)
	}
	return nil
}

// ListInteractionsByAccount needs a composite index on
// (user_id ASC, timestamp DESC).
func (s *Store) ListInteractionsByAccount(ctx context.Context, accountID string, limit int) ([]*model.Interaction, error) {
	q := s.client.Collection(colHistory).
		Where("user_id", "==", accountID).
		OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]*model.Interaction, 0)
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListInteractionsByAccount: %w", err)
		}

		var doc interactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode interactionDoc: %w", err)
		}

		out = append(out, &model.Interaction{
			ID:            snap.Ref.ID,
			SessionID:     doc.SessionID,
			AccountID:     doc.UserID,
			IsAnonymous:   doc.IsAnonymous,
			UserInputText: doc.UserInputText,
			AIResponse:    doc.AIResponse,
			ImageURL:      doc.ImageURL,
			ModelUsed:     doc.ModelUsed,
			CreatedAt:     doc.Timestamp,
		})
	}
	return out, nil
}
