package authstate

import "time"

// Profile document field keys. The document store is schemaless; these
// are the only keys this package reads or writes.
const (
	FieldUID            = "uid"
	FieldEmail          = "email"
	FieldDisplayName    = "displayName"
	FieldFirstName      = "firstName"
	FieldLastName       = "lastName"
	FieldPhone          = "phone"
	FieldRole           = "userRole"
	FieldEmailVerified  = "emailVerified"
	FieldFirstTimeLogin = "firstTimeLogin"
	FieldCreatedAt      = "createdAt"
	FieldLastLoginAt    = "lastLoginAt"
)

// AuthUser is the authenticated identity merged with profile data. It
// is the only user shape downstream consumers (guards, policy, UI) see.
type AuthUser struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	EmailVerified  bool   `json:"email_verified"`
	Role           Role   `json:"role,omitempty"`
	FirstTimeLogin bool   `json:"first_time_login"`
	LastLoginAt    string `json:"last_login_at,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Clone returns a copy so callers can hand snapshots around without
// sharing mutable state.
func (u *AuthUser) Clone() *AuthUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// mergeIdentity builds an AuthUser from a raw identity and its profile
// document. A nil document yields an identity-only user with an unset
// role, which downstream policy treats as needs-role-selection.
func mergeIdentity(identity Identity, doc Document) *AuthUser {
	user := &AuthUser{
		ID:            identity.ID(),
		Email:         identity.Email(),
		DisplayName:   identity.DisplayName(),
		EmailVerified: identity.EmailVerified(),
	}

	if !identity.CreationTime().IsZero() {
		user.CreatedAt = identity.CreationTime().UTC().Format(time.RFC3339)
	}

	if doc == nil {
		return user
	}

	if role, ok := ParseRole(docString(doc, FieldRole)); ok {
		user.Role = role
	}
	user.FirstTimeLogin = docBool(doc, FieldFirstTimeLogin, false)
	if v := docString(doc, FieldLastLoginAt); v != "" {
		user.LastLoginAt = v
	}
	if user.DisplayName == "" {
		user.DisplayName = docString(doc, FieldDisplayName)
	}
	if v := docString(doc, FieldCreatedAt); v != "" {
		user.CreatedAt = v
	}

	return user
}

// newProfileDocument is the document written for a fresh password signup.
func newProfileDocument(identity Identity, p SignUpPayload, now time.Time) Document {
	stamp := now.UTC().Format(time.RFC3339)
	doc := Document{
		FieldUID:            identity.ID(),
		FieldEmail:          identity.Email(),
		FieldDisplayName:    identity.DisplayName(),
		FieldFirstName:      p.FirstName,
		FieldLastName:       p.LastName,
		FieldRole:           p.Role,
		FieldEmailVerified:  false,
		FieldFirstTimeLogin: true,
		FieldCreatedAt:      stamp,
		FieldLastLoginAt:    stamp,
	}
	if p.Phone != "" {
		doc[FieldPhone] = p.Phone
	}
	return doc
}

// socialProfileDocument is the document written the first time a social
// identity signs in. Role may be unset; role selection handles it later.
func socialProfileDocument(identity Identity, role Role, now time.Time) Document {
	stamp := now.UTC().Format(time.RFC3339)
	first, last := splitDisplayName(identity.DisplayName())
	doc := Document{
		FieldUID:            identity.ID(),
		FieldEmail:          identity.Email(),
		FieldDisplayName:    identity.DisplayName(),
		FieldFirstName:      first,
		FieldLastName:       last,
		FieldEmailVerified:  identity.EmailVerified(),
		FieldFirstTimeLogin: true,
		FieldCreatedAt:      stamp,
		FieldLastLoginAt:    stamp,
	}
	if role != RoleUnset {
		doc[FieldRole] = role
	}
	return doc
}

func splitDisplayName(name string) (first, last string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

func docString(doc Document, key string) string {
	if doc == nil {
		return ""
	}
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// docBool reads a boolean field, falling back to def when the field is
// absent or not a bool. Legacy documents predate firstTimeLogin, so
// callers pick the default that matches the original semantics.
func docBool(doc Document, key string, def bool) bool {
	if doc == nil {
		return def
	}
	if v, ok := doc[key].(bool); ok {
		return v
	}
	return def
}
