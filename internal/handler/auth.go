package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/handler/dto"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/service"
)

// AuthHandler handles signup, login and profile requests.
type AuthHandler struct {
	svc      *service.AccountService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. tokenTTL is reported to
// clients as expires_in.
func NewAuthHandler(svc *service.AccountService, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, tokenTTL: tokenTTL, logger: logger}
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	in := service.SignupInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.Name,
	}
	if req.DOB != nil && *req.DOB != "" {
		dob, err := time.Parse(model.DateLayout, *req.DOB)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SIGNUP", "dob must be formatted as YYYY-MM-DD")
			return
		}
		in.DateOfBirth = &dob
	}

	token, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewTokenResponse(token, int64(h.tokenTTL.Seconds())))
}

// Login handles POST /api/v1/auth/login. It accepts a JSON body or a
// urlencoded OAuth2 password grant form. The username field may hold an
// email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var identifier, password string

	if isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Malformed form body")
			return
		}
		identifier, password = r.PostFormValue("username"), r.PostFormValue("password")
	} else {
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return
		}
		identifier, password = req.Identifier(), req.Password
	}

	token, err := h.svc.Login(r.Context(), identifier, password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewTokenResponse(token, int64(h.tokenTTL.Seconds())))
}

// Me handles GET /api/v1/auth/me. Must run behind middleware.RequireAccount.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFromContext(r.Context())
	if account == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, account.ToProfile())
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSignup):
		writeError(w, http.StatusBadRequest, "INVALID_SIGNUP", err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email/username or password")
	default:
		h.logger.ErrorContext(r.Context(), "internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

func isFormRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded"
}
