package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/model"
)

// AccountVerifier resolves a bearer credential to an active account.
// Implemented by *service.CredentialVerifier.
type AccountVerifier interface {
	VerifyAccount(ctx context.Context, credential string) (*model.Account, bool)
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively. Returns "" when absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAccount rejects requests without a credential for an active
// account. The account is stored in the context for the handler.
func RequireAccount(verifier AccountVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := verifier.VerifyAccount(r.Context(), BearerToken(r))
			if !ok {
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 Unauthorized response.
// The same message is used for every failure to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
}
