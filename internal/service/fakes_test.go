package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository/memory"
)

var errBoom = errors.New("boom")

var fastHash = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeModel records every prompt it receives.
type fakeModel struct {
	mu      sync.Mutex
	prompts []model.Prompt
	reply   string
	err     error
}

func (m *fakeModel) Generate(_ context.Context, p model.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, p)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *fakeModel) Last() model.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[len(m.prompts)-1]
}

// fakeUploader returns url or err and counts calls.
type fakeUploader struct {
	calls atomic.Int32
	url   string
	err   error
	mime  atomic.Value
}

func (u *fakeUploader) Upload(_ context.Context, _ []byte, mimeType, _ string) (string, error) {
	u.calls.Add(1)
	u.mime.Store(mimeType)
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

// flakyStore wraps the memory store and fails on demand.
type flakyStore struct {
	*memory.Store
	appendErr error
	listErr   error
	lookupErr error
	listCalls atomic.Int32
}

func (s *flakyStore) AppendInteraction(ctx context.Context, rec *model.Interaction) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.AppendInteraction(ctx, rec)
}

func (s *flakyStore) ListInteractionsByAccount(ctx context.Context, accountID string, limit int) ([]*model.Interaction, error) {
	s.listCalls.Add(1)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListInteractionsByAccount(ctx, accountID, limit)
}

func (s *flakyStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.Store.GetAccountByID(ctx, id)
}

// env bundles a chat service with its collaborators.
type env struct {
	store    *flakyStore
	model    *fakeModel
	uploader *fakeUploader
	tokens   *auth.TokenIssuer
	recorder *metrics.InMemoryRecorder
	verifier *CredentialVerifier
	chat     *ChatService
	accounts *AccountService
	history  *HistoryService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	e := &env{
		store:    &flakyStore{Store: memory.NewStore()},
		model:    &fakeModel{reply: "model says hi"},
		uploader: &fakeUploader{url: "https://cdn.example.com/img.jpg"},
		tokens:   tokens,
		recorder: metrics.NewInMemory(),
	}
	e.verifier = NewCredentialVerifier(tokens, e.store, discardLogger())
	e.chat, err = NewChatService(ChatServiceConfig{
		Verifier:     e.verifier,
		Model:        e.model,
		Uploader:     e.uploader,
		Interactions: e.store,
		HistoryLimit: 10,
		Metrics:      e.recorder,
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	e.accounts = NewAccountService(e.store, auth.NewPasswordHasher(fastHash), tokens, e.recorder, discardLogger())
	e.history = NewHistoryService(e.store, 50)
	return e
}

// signup creates an account and returns its bearer token and id.
func (e *env) signup(t *testing.T, email, username string) (string, string) {
	t.Helper()
	token, err := e.accounts.Signup(context.Background(), SignupInput{
		Email:    email,
		Username: username,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	id, err := e.tokens.Verify(token)
	require.NoError(t, err)
	return token, id
}

func jpeg() *RawImage {
	return &RawImage{Data: []byte{0xff, 0xd8, 0xff, 0xe0}, MIMEType: "image/jpeg", Filename: "cat.jpg"}
}
