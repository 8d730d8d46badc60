package auth

// Package auth contains domain-level types for externally authenticated identities
// and the session key contract. It is pure and free of framework/adapter concerns.

import (
	"errors"
	"maps"
)

// Session keys written on login and cleared on logout. The token and user data
// keys are always written and forgotten together; a session is valid exactly
// when both are present.
const (
	SessionKeyToken    = "external_auth_token"
	SessionKeyUserData = "external_user_data"
	SessionKeyUserID   = "user_id"
	SessionKeyEmail    = "user_email"
	SessionKeyName     = "user_name"
	SessionKeyRole     = "user_role"
)

// SessionKeys returns the full key set owned by the guard, in the order they are forgotten.
func SessionKeys() []string {
	return []string{
		SessionKeyToken,
		SessionKeyUserData,
		SessionKeyUserID,
		SessionKeyEmail,
		SessionKeyName,
		SessionKeyRole,
	}
}

// Well-known attribute names in an identity's attribute mapping.
const (
	AttrID       = "id"
	AttrEmail    = "email"
	AttrName     = "name"
	AttrUsername = "username"
	AttrRole     = "role"
)

// ErrSessionNotFound is returned by session backends when no live session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// AuthResult is the normalized outcome of a successful external authentication.
// Token is opaque and never inspected. Data backs an Identity.
type AuthResult struct {
	Token string
	Data  map[string]any
}

// Identity returns an Identity view over the result's attribute mapping.
func (r AuthResult) Identity() *Identity {
	return NewIdentity(r.Data)
}

// Identity is a read-only view over the attribute mapping returned by the
// identity provider. It is immutable once constructed.
type Identity struct {
	attrs map[string]any
}

// NewIdentity builds an Identity from attrs. The mapping is copied so later
// changes by the caller do not leak into the record.
func NewIdentity(attrs map[string]any) *Identity {
	cloned := make(map[string]any, len(attrs))
	maps.Copy(cloned, attrs)
	return &Identity{attrs: cloned}
}

// IdentifierName is the attribute used as the authentication identifier.
func (i *Identity) IdentifierName() string { return AttrID }

// Identifier returns the id attribute verbatim (string or number, no coercion).
func (i *Identity) Identifier() (any, bool) {
	v, ok := i.attrs[AttrID]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Email returns the email attribute, or "" when missing or null.
func (i *Identity) Email() string {
	return i.stringAttr(AttrEmail)
}

// DisplayName returns Attribute("name") as a string: a non-null name wins,
// even when empty; otherwise username is used. Non-string values yield "".
func (i *Identity) DisplayName() string {
	v, _ := i.Attribute(AttrName)
	name, _ := v.(string)
	return name
}

// Role returns the role attribute, or "" when missing.
func (i *Identity) Role() string {
	return i.stringAttr(AttrRole)
}

// Attribute looks up key. "name" falls back to "username" when no name
// attribute is set; every other key, including "email", is looked up verbatim.
// Null values are reported as absent.
func (i *Identity) Attribute(key string) (any, bool) {
	if key == AttrName {
		if v, ok := i.present(AttrName); ok {
			return v, true
		}
		return i.present(AttrUsername)
	}
	return i.present(key)
}

// Has reports whether key is set to a non-null value.
func (i *Identity) Has(key string) bool {
	_, ok := i.present(key)
	return ok
}

// RawAttributes returns the full attribute mapping. The result is a copy.
func (i *Identity) RawAttributes() map[string]any {
	out := make(map[string]any, len(i.attrs))
	maps.Copy(out, i.attrs)
	return out
}

func (i *Identity) present(key string) (any, bool) {
	v, ok := i.attrs[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (i *Identity) stringAttr(key string) string {
	if s, ok := i.attrs[key].(string); ok {
		return s
	}
	return ""
}
