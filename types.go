package authstate

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Role is the user's platform role
type Role = string

const (
	// RoleMentor identifies mentor accounts
	RoleMentor Role = "mentor"
	// RoleMentee identifies mentee accounts
	RoleMentee Role = "mentee"
	// RoleUnset marks accounts that have not picked a role yet,
	// e.g. social sign-ins that skipped role selection
	RoleUnset Role = ""
)

// ParseRole validates a raw role string. Anything that is not one of
// the two platform roles is rejected; we never store arbitrary strings.
func ParseRole(s string) (Role, bool) {
	switch s {
	case RoleMentor:
		return RoleMentor, true
	case RoleMentee:
		return RoleMentee, true
	}
	return RoleUnset, false
}

// RoleDisplayName returns the human facing name used in error messages.
func RoleDisplayName(r Role) string {
	switch r {
	case RoleMentor:
		return "Mentor"
	case RoleMentee:
		return "Mentee"
	}
	return "Unassigned"
}

// RoleCompletionStatus is the derived onboarding state of a signed in user.
type RoleCompletionStatus string

const (
	// StatusNeedsRoleSelection means the account has no role assigned
	StatusNeedsRoleSelection RoleCompletionStatus = "needs-role-selection"
	// StatusNeedsMentorSetup means a first time mentor has not finished setup
	StatusNeedsMentorSetup RoleCompletionStatus = "needs-mentor-setup"
	// StatusComplete means nothing is pending
	StatusComplete RoleCompletionStatus = "complete"
)

// ProviderKind identifies a social identity provider.
type ProviderKind string

const (
	ProviderGoogle   ProviderKind = "google"
	ProviderFacebook ProviderKind = "facebook"
)

// Identity is the raw principal emitted by the identity provider,
// before it is merged with profile data.
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	EmailVerified() bool
	CreationTime() time.Time
	LastSignInTime() time.Time
}

// IdentityProvider wraps the hosted identity service: email/password
// accounts plus popup based social sign in. Implementations own the
// provider side session; OnIdentityChange is the only push channel out.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Identity, error)
	CreateAccount(ctx context.Context, email, password string) (Identity, error)
	SignInWithProviderPopup(ctx context.Context, kind ProviderKind) (Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context) error
	UpdateDisplayName(ctx context.Context, name string) error
	UpdatePassword(ctx context.Context, currentPassword, newPassword string) error

	// OnIdentityChange registers a long lived listener that fires on
	// sign in, sign out and credential refresh. The callback receives
	// nil when nobody is signed in. Registration invokes the callback
	// once with the current identity; the returned func unsubscribes.
	OnIdentityChange(fn func(Identity)) func()
}

// Document is the schemaless profile record shape.
type Document = map[string]any

// ProfileStore is the per-user document store keyed by identity ID.
// GetDocument returns ErrDocumentNotFound for missing documents.
type ProfileStore interface {
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHSTATE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHSTATE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHSTATE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHSTATE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
