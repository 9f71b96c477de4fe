package authstate

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// DeriveRoleCompletion is the pure derivation over an already merged
// user. Guards and post-login redirects must agree on this rule, so it
// lives in exactly one place.
func DeriveRoleCompletion(user *AuthUser) RoleCompletionStatus {
	if user == nil {
		return StatusComplete
	}
	if user.Role == RoleUnset {
		return StatusNeedsRoleSelection
	}
	if user.FirstTimeLogin && user.Role == RoleMentor {
		return StatusNeedsMentorSetup
	}
	return StatusComplete
}

// RoleCompletionPolicy evaluates onboarding status against persisted
// state rather than guard-local flags, so independent consumers agree
// even minutes apart with intervening store mutations.
type RoleCompletionPolicy struct {
	store  *SessionStore
	routes GuardRoutes
	strict bool
	logger Logger
}

// PolicyOption customizes policy construction.
type PolicyOption func(*RoleCompletionPolicy)

// WithStrictReads makes profile read failures surface as errors instead
// of degrading to "complete". The default is lenient: a transient read
// error lets the user in rather than trapping them in a redirect loop.
// Availability over strictness, by explicit choice.
func WithStrictReads() PolicyOption {
	return func(p *RoleCompletionPolicy) {
		p.strict = true
	}
}

// WithPolicyRoutes overrides the redirect targets used by
// PostLoginDestination.
func WithPolicyRoutes(routes GuardRoutes) PolicyOption {
	return func(p *RoleCompletionPolicy) {
		p.routes = routes.withDefaults()
	}
}

// WithPolicyLogger overrides the policy logger.
func WithPolicyLogger(logger Logger) PolicyOption {
	return func(p *RoleCompletionPolicy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewRoleCompletionPolicy builds a policy over the given store.
func NewRoleCompletionPolicy(store *SessionStore, opts ...PolicyOption) *RoleCompletionPolicy {
	p := &RoleCompletionPolicy{
		store:  store,
		routes: DefaultGuardRoutes(),
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Evaluate computes the onboarding status for the signed in user from
// persisted state. Returns ErrNoUser while signed out; callers gate on
// authentication first.
func (p *RoleCompletionPolicy) Evaluate(ctx context.Context) (RoleCompletionStatus, error) {
	if p.store.CurrentUser() == nil {
		return StatusComplete, ErrNoUser
	}

	role, err := p.store.persistedRole(ctx)
	if err != nil {
		return p.degrade(err)
	}
	if role == RoleUnset {
		return StatusNeedsRoleSelection, nil
	}

	first, err := p.store.firstTimeLoginStatus(ctx)
	if err != nil {
		return p.degrade(err)
	}
	if first && role == RoleMentor {
		return StatusNeedsMentorSetup, nil
	}

	return StatusComplete, nil
}

// PostLoginDestination resolves where a freshly signed in user should
// land: role selection, mentor setup, or the preserved returnUrl. The
// password and social login surfaces share this rule.
func (p *RoleCompletionPolicy) PostLoginDestination(ctx context.Context, returnURL string) string {
	if returnURL == "" {
		returnURL = p.routes.Portal
	}
	if p.store.CurrentUser() == nil {
		return p.routes.Login
	}

	status, err := p.Evaluate(ctx)
	if err != nil && !IsCode(err, TextCodeNoUser) {
		p.logger.Warn("post login destination: %v", err)
		return returnURL
	}

	switch status {
	case StatusNeedsRoleSelection:
		return p.routes.RoleSelection
	case StatusNeedsMentorSetup:
		return p.routes.MentorSetup
	default:
		return returnURL
	}
}

func (p *RoleCompletionPolicy) degrade(err error) (RoleCompletionStatus, error) {
	if p.strict {
		return StatusComplete, goerrors.Wrap(
			err,
			goerrors.CategoryOperation,
			"role completion read failed",
		)
	}
	p.logger.Warn("role completion read failed, treating as complete: %v", err)
	return StatusComplete, nil
}
