// Package model defines domain entities for the application.
package model

import "time"

// Account represents a registered user.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	DisplayName  *string    `json:"name,omitempty"`
	DateOfBirth  *time.Time `json:"dob,omitempty"`
	PasswordHash string     `json:"-"` // Never serialize
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AccountProfile is the public view of an account.
type AccountProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"name,omitempty"`
	DateOfBirth *string   `json:"dob,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateLayout is the wire format for date of birth.
const DateLayout = "2006-01-02"

// ToProfile converts an Account to its public profile.
func (a *Account) ToProfile() AccountProfile {
	p := AccountProfile{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		CreatedAt:   a.CreatedAt,
	}
	if a.DateOfBirth != nil {
		dob := a.DateOfBirth.Format(DateLayout)
		p.DateOfBirth = &dob
	}
	return p
}
