package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/handler"
	"github.com/vistachat/vistachat/internal/handler/dto"
	"github.com/vistachat/vistachat/internal/llm"
	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository/memory"
	"github.com/vistachat/vistachat/internal/service"
	"github.com/vistachat/vistachat/internal/storage"
)

type testApp struct {
	router  http.Handler
	store   *memory.Store
	metrics *metrics.InMemoryRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	recorder := metrics.NewInMemory()

	tokens, err := auth.NewTokenIssuer("router-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	hasher := auth.NewPasswordHasher(auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	verifier := service.NewCredentialVerifier(tokens, store, logger)
	chatSvc, err := service.NewChatService(service.ChatServiceConfig{
		Verifier:     verifier,
		Model:        llm.NewMockClient("mock-model"),
		Uploader:     storage.Discard{},
		Interactions: store,
		HistoryLimit: 10,
		Metrics:      recorder,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("NewChatService: %v", err)
	}
	accountSvc := service.NewAccountService(store, hasher, tokens, recorder, logger)

	router := NewRouter(RouterConfig{
		Logger:         logger,
		Health:         handler.NewHealthHandler("memory", store, nil),
		Chat:           handler.NewChatHandler(chatSvc, 1<<20, logger),
		History:        handler.NewHistoryHandler(service.NewHistoryService(store, 50), logger),
		Auth:           handler.NewAuthHandler(accountSvc, tokens.TTL(), logger),
		Verifier:       verifier,
		Metrics:        recorder,
		IsDevelopment:  true,
		AllowedOrigins: []string{"*"},
		MaxImageSize:   1 << 20,
	})

	return &testApp{router: router, store: store, metrics: recorder}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signup(t *testing.T, email, username string) string {
	t.Helper()
	body := `{"email":"` + email + `","username":"` + username + `","password":"correct horse battery"}`
	rec := a.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tok dto.TokenResponse
	decode(t, rec, &tok)
	return tok.AccessToken
}

// chatRequest builds a multipart chat request. Empty text or nil image
// leaves that part out.
func chatRequest(t *testing.T, text string, image []byte, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if text != "" {
		if err := mw.WriteField(handler.FieldUserInputText, text); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image_file"; filename="cat.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestRouter_AuthenticatedConversation(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	app.signup(t, "ada@example.com", "ada")

	form := url.Values{"username": {"ada@example.com"}, "password": {"correct horse battery"}}
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := app.do(loginReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tok dto.TokenResponse
	decode(t, rec, &tok)
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	rec = app.do(chatRequest(t, "hello", nil, tok.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
	}
	var chat dto.ChatResponse
	decode(t, rec, &chat)

	meReq := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = app.do(meReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var profile model.AccountProfile
	decode(t, rec, &profile)

	if chat.SessionID != profile.ID {
		t.Errorf("session_id = %q, want account id %q", chat.SessionID, profile.ID)
	}
	if chat.ModelUsed != "mock-model" {
		t.Errorf("model_used = %q", chat.ModelUsed)
	}
	if len(chat.ChatHistory) != 1 {
		t.Fatalf("chat_history has %d items, want 1", len(chat.ChatHistory))
	}
	item := chat.ChatHistory[0]
	if item.IsAnonymous || item.UserID == nil || *item.UserID != profile.ID || item.UserInputText != "hello" {
		t.Errorf("unexpected history item: %+v", item)
	}

	histReq := httptest.NewRequest(http.MethodGet, "/api/v1/history/", nil)
	histReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = app.do(histReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, body %s", rec.Code, rec.Body.String())
	}
	var history []model.HistoryItem
	decode(t, rec, &history)
	if len(history) != 1 || history[0].AIResponseText != chat.AIResponse {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestRouter_AnonymousChat(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	sessions := make(map[string]bool)
	for _, token := range []string{"", "not-a-jwt"} {
		rec := app.do(chatRequest(t, "hi there", nil, token))
		if rec.Code != http.StatusOK {
			t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"chat_history":[]`) {
			t.Errorf("anonymous chat_history should be an empty array, got %s", rec.Body.String())
		}

		var chat dto.ChatResponse
		decode(t, rec, &chat)
		if _, err := uuid.Parse(chat.SessionID); err != nil {
			t.Errorf("anonymous session_id %q is not a uuid", chat.SessionID)
		}
		sessions[chat.SessionID] = true
	}
	if len(sessions) != 2 {
		t.Error("anonymous requests reused a session id")
	}

	for _, rec := range app.store.Interactions() {
		if !rec.IsAnonymous || rec.AccountID != nil {
			t.Errorf("record should be anonymous: %+v", rec)
		}
	}
}

func TestRouter_ChatImageOnly(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.do(chatRequest(t, "", []byte{0x89, 'P', 'N', 'G'}, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
	}
	var chat dto.ChatResponse
	decode(t, rec, &chat)
	if !strings.Contains(chat.AIResponse, "image/png") {
		t.Errorf("model did not receive the image: %q", chat.AIResponse)
	}

	records := app.store.Interactions()
	if len(records) != 1 {
		t.Fatalf("stored %d records, want 1", len(records))
	}
	if records[0].ImageURL != nil || records[0].UserInputText != "" {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestRouter_ChatValidation(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.do(chatRequest(t, "", nil, ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body dto.ErrorResponse
	decode(t, rec, &body)
	if body.Code != "INVALID_INPUT" {
		t.Errorf("code = %q, want INVALID_INPUT", body.Code)
	}
	if len(app.store.Interactions()) != 0 {
		t.Error("invalid input must not write a record")
	}
	if got := app.metrics.Snapshot().ChatRequests[metrics.OutcomeInvalidInput]; got != 1 {
		t.Errorf("invalid_input counter = %d, want 1", got)
	}
}

func TestRouter_ChatImageTooLarge(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.do(chatRequest(t, "big", make([]byte, 1<<20+1), ""))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if len(app.store.Interactions()) != 0 {
		t.Error("rejected request must not write a record")
	}
}

func TestRouter_ProtectedRoutesRequireCredential(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	for _, path := range []string{"/api/v1/history", "/api/v1/auth/me"} {
		for _, header := range []string{"", "Bearer garbage"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := app.do(req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s with %q: status = %d, want 401", path, header, rec.Code)
			}
		}
	}
}

func TestRouter_SignupConflicts(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	app.signup(t, "grace@example.com", "grace")

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"duplicate email", `{"email":"GRACE@example.com","username":"other","password":"long enough pw"}`, "EMAIL_TAKEN"},
		{"duplicate username", `{"email":"new@example.com","username":"grace","password":"long enough pw"}`, "USERNAME_TAKEN"},
	}

	for _, tt := range tests {
		rec := app.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(tt.body)))
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: status = %d, want 409", tt.name, rec.Code)
			continue
		}
		var body dto.ErrorResponse
		decode(t, rec, &body)
		if body.Code != tt.wantCode {
			t.Errorf("%s: code = %q, want %q", tt.name, body.Code, tt.wantCode)
		}
	}
}

func TestRouter_LoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	app.signup(t, "linus@example.com", "linus")

	rec := app.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"linus","password":"wrong password"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestRouter_InfraRoutes(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/chat", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rec := app.do(httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: missing X-Request-ID", tt.method, tt.path)
		}
	}
}
