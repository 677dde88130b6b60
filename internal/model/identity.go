package model

// IdentityKind distinguishes authenticated from anonymous callers.
type IdentityKind int

const (
	// Anonymous callers carry a fresh per-request session id.
	Anonymous IdentityKind = iota
	// Authenticated callers use their account id as session id.
	Authenticated
)

// SessionIdentity is computed once per request and never stored.
type SessionIdentity struct {
	Kind      IdentityKind
	AccountID string
	SessionID string
}

// IsAnonymous reports whether the identity has no account.
func (s SessionIdentity) IsAnonymous() bool {
	return s.Kind != Authenticated
}

// AccountIDPtr returns the account id for storage, nil when anonymous.
func (s SessionIdentity) AccountIDPtr() *string {
	if s.IsAnonymous() {
		return nil
	}
	id := s.AccountID
	return &id
}
