// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/vistachat/vistachat/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ChatResponse is the body of a successful chat request.
type ChatResponse struct {
	SessionID   string              `json:"session_id"`
	AIResponse  string              `json:"ai_response"`
	ModelUsed   string              `json:"model_used"`
	ChatHistory []model.HistoryItem `json:"chat_history"`
}

// ToChatResponse builds the response from the orchestrator result.
func ToChatResponse(sessionID, reply, modelUsed string, history []*model.Interaction) *ChatResponse {
	return &ChatResponse{
		SessionID:   sessionID,
		AIResponse:  reply,
		ModelUsed:   modelUsed,
		ChatHistory: model.ToHistoryItems(history),
	}
}

// SignupRequest represents the request body for creating an account.
type SignupRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
	// DOB uses model.DateLayout (YYYY-MM-DD).
	DOB *string `json:"dob,omitempty"`
}

// LoginRequest represents a JSON login body. Username may hold an email.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identifier returns the email or username the caller logs in with.
func (r LoginRequest) Identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// TokenResponse carries a bearer credential.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// NewTokenResponse wraps a bearer token.
func NewTokenResponse(token string, expiresInSeconds int64) *TokenResponse {
	return &TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresIn: expiresInSeconds}
}
