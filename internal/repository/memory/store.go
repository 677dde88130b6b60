// Package memory is an in-process store for accounts and interaction
// records. It is not persistent and is meant for tests and local mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository"
)

// Store is a mutex-guarded implementation of the account and
// interaction stores.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]*model.Account
	byEmail    map[string]string
	byUsername map[string]string

	interactions []*model.Interaction
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]*model.Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// CreateAccount stores a copy of account.
func (s *Store) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return repository.ErrEmailExists
	}
	if _, ok := s.byUsername[account.Username]; ok {
		return repository.ErrUsernameExists
	}

	cp := *account
	s.accounts[cp.ID] = &cp
	s.byEmail[email] = cp.ID
	s.byUsername[cp.Username] = cp.ID
	return nil
}

// GetAccountByID returns the account with the given id.
func (s *Store) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

// GetAccountByEmail returns the account with the given email.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.byEmail[strings.ToLower(email)])
}

// GetAccountByUsername returns the account with the given username.
func (s *Store) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.byUsername[username])
}

// DeleteAccount removes an account. Its interaction records are kept.
func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	delete(s.byEmail, strings.ToLower(a.Email))
	delete(s.byUsername, a.Username)
	delete(s.accounts, id)
	return nil
}

func (s *Store) lookup(id string) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// AppendInteraction stores a copy of rec. Every call adds a record.
func (s *Store) AppendInteraction(_ context.Context, rec *model.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.interactions = append(s.interactions, &cp)
	return nil
}

// ListInteractionsByAccount returns up to limit records owned by
// accountID, most recent first.
func (s *Store) ListInteractionsByAccount(_ context.Context, accountID string, limit int) ([]*model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Interaction, 0)
	// Walk backwards so equal timestamps keep newest-inserted first.
	for i := len(s.interactions) - 1; i >= 0; i-- {
		rec := s.interactions[i]
		if rec.AccountID == nil || *rec.AccountID != accountID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Interactions returns every stored record in insertion order.
func (s *Store) Interactions() []*model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Interaction, 0, len(s.interactions))
	for _, rec := range s.interactions {
		cp := *rec
		out = append(out, &cp)
	}
	return out
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
