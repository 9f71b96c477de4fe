package authstate

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure   ActivityEventType = "auth.login.failure"
	ActivityEventSignupSuccess  ActivityEventType = "auth.signup.success"
	ActivityEventSignupFailure  ActivityEventType = "auth.signup.failure"
	ActivityEventSocialLogin    ActivityEventType = "auth.social.login"
	ActivityEventSignOut        ActivityEventType = "auth.signout"
	ActivityEventRoleChanged    ActivityEventType = "auth.role.changed"
	ActivityEventPasswordReset  ActivityEventType = "auth.password.reset"
	ActivityEventVerificationTx ActivityEventType = "auth.verification.sent"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Provider   ProviderKind
	Role       Role
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
