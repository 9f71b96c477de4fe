package authstate

import (
	"context"
	"net/url"
	"strings"
)

// Decision is the outcome of a single navigation check. Not persisted;
// every navigation attempt re-evaluates from scratch.
type Decision struct {
	Allow          bool
	RedirectTarget string
}

// Allowed is the pass-through decision.
func Allowed() Decision {
	return Decision{Allow: true}
}

// RedirectTo builds a redirect decision. When returnURL is non-empty it
// is preserved as a returnUrl query parameter so the user lands back on
// the page they wanted after remediation.
func RedirectTo(path, returnURL string) Decision {
	target := path
	if returnURL != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target = path + sep + "returnUrl=" + url.QueryEscape(returnURL)
	}
	return Decision{RedirectTarget: target}
}

// GuardRoutes holds the redirect targets used by the guards.
type GuardRoutes struct {
	Login           string
	VerifyEmail     string
	RoleSelection   string
	Portal          string
	MentorSetup     string
	MentorDashboard string
	MenteeDashboard string
}

// DefaultGuardRoutes returns the platform's route layout.
func DefaultGuardRoutes() GuardRoutes {
	return GuardRoutes{}.withDefaults()
}

func (r GuardRoutes) withDefaults() GuardRoutes {
	if r.Login == "" {
		r.Login = "/auth/login"
	}
	if r.VerifyEmail == "" {
		r.VerifyEmail = "/auth/verify-email"
	}
	if r.RoleSelection == "" {
		r.RoleSelection = "/auth/role-selection"
	}
	if r.Portal == "" {
		r.Portal = "/portal"
	}
	if r.MentorSetup == "" {
		r.MentorSetup = "/portal/mentor-setup"
	}
	if r.MentorDashboard == "" {
		r.MentorDashboard = "/mentor-dashboard"
	}
	if r.MenteeDashboard == "" {
		r.MenteeDashboard = "/mentee-dashboard"
	}
	return r
}

// GuardFunc is a navigation-gating predicate: current state plus the
// attempted URL in, allow/redirect out. Errors only surface for context
// cancellation or strict policy reads; a plain "no" is a redirect.
type GuardFunc func(ctx context.Context, target string) (Decision, error)

// Guards bundles the decision functions over one store. Every guard
// awaits the loading gate before reading state; evaluating while the
// auth determination is pending is how redirect loops happen.
type Guards struct {
	store  *SessionStore
	routes GuardRoutes
	policy *RoleCompletionPolicy
	logger Logger
}

// GuardsOption customizes guard construction.
type GuardsOption func(*Guards)

// WithGuardRoutes overrides the redirect targets.
func WithGuardRoutes(routes GuardRoutes) GuardsOption {
	return func(g *Guards) {
		g.routes = routes.withDefaults()
	}
}

// WithGuardPolicy injects a custom role-completion policy, e.g. one
// built with WithStrictReads.
func WithGuardPolicy(policy *RoleCompletionPolicy) GuardsOption {
	return func(g *Guards) {
		if policy != nil {
			g.policy = policy
		}
	}
}

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(logger Logger) GuardsOption {
	return func(g *Guards) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuards builds the guard set for a store.
func NewGuards(store *SessionStore, opts ...GuardsOption) *Guards {
	g := &Guards{
		store:  store,
		routes: DefaultGuardRoutes(),
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.policy == nil {
		g.policy = NewRoleCompletionPolicy(store, WithPolicyRoutes(g.routes))
	}
	return g
}

// Routes exposes the configured redirect targets.
func (g *Guards) Routes() GuardRoutes {
	return g.routes
}

// RequireAuth allows authenticated users and redirects everyone else to
// sign in, preserving the attempted URL.
func (g *Guards) RequireAuth(ctx context.Context, target string) (Decision, error) {
	snap, err := g.store.AwaitReady(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !snap.Authenticated() {
		g.logger.Debug("access denied, redirecting to login: %s", target)
		return RedirectTo(g.routes.Login, target), nil
	}
	return Allowed(), nil
}

// RequireVerifiedEmail additionally requires a verified email address.
// Unverified users go to the verify-email page, a distinct target from
// the sign in redirect.
func (g *Guards) RequireVerifiedEmail(ctx context.Context, target string) (Decision, error) {
	snap, err := g.store.AwaitReady(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !snap.Authenticated() {
		return RedirectTo(g.routes.Login, target), nil
	}
	if !snap.User.EmailVerified {
		return RedirectTo(g.routes.VerifyEmail, target), nil
	}
	return Allowed(), nil
}

// RequireGuest keeps signed in users out of guest-only pages (login,
// signup) by bouncing them to the portal.
func (g *Guards) RequireGuest(ctx context.Context, target string) (Decision, error) {
	snap, err := g.store.AwaitReady(ctx)
	if err != nil {
		return Decision{}, err
	}
	if snap.Authenticated() {
		g.logger.Debug("already authenticated, redirecting to portal: %s", target)
		return RedirectTo(g.routes.Portal, ""), nil
	}
	return Allowed(), nil
}

// RequireRole gates a route on a specific role. Users holding a
// different role are sent to their own dashboard instead.
func (g *Guards) RequireRole(required Role) GuardFunc {
	return func(ctx context.Context, target string) (Decision, error) {
		snap, err := g.store.AwaitReady(ctx)
		if err != nil {
			return Decision{}, err
		}
		if !snap.Authenticated() {
			return RedirectTo(g.routes.Login, ""), nil
		}
		if required != RoleUnset && snap.User.Role != required {
			switch snap.User.Role {
			case RoleMentor:
				return RedirectTo(g.routes.MentorDashboard, ""), nil
			case RoleMentee:
				return RedirectTo(g.routes.MenteeDashboard, ""), nil
			default:
				return RedirectTo(g.routes.Portal, ""), nil
			}
		}
		return Allowed(), nil
	}
}

// RequireRoleComplete is the onboarding gate: users without a role go
// to role selection, first time mentors go to mentor setup. The role
// selection and mentor setup pages themselves are carved out, otherwise
// the guard would redirect forever.
func (g *Guards) RequireRoleComplete(ctx context.Context, target string) (Decision, error) {
	snap, err := g.store.AwaitReady(ctx)
	if err != nil {
		return Decision{}, err
	}

	path := pathOnly(target)
	if strings.HasPrefix(path, g.routes.RoleSelection) || strings.HasPrefix(path, g.routes.MentorSetup) {
		return Allowed(), nil
	}

	if !snap.Authenticated() {
		return RedirectTo(g.routes.Login, target), nil
	}

	status, err := g.policy.Evaluate(ctx)
	if err != nil && !IsCode(err, TextCodeNoUser) {
		return Decision{}, err
	}

	switch status {
	case StatusNeedsRoleSelection:
		g.logger.Debug("user needs to complete role selection: %s", target)
		return RedirectTo(g.routes.RoleSelection, target), nil
	case StatusNeedsMentorSetup:
		g.logger.Debug("first time mentor, redirecting to setup: %s", target)
		return RedirectTo(g.routes.MentorSetup, target), nil
	default:
		return Allowed(), nil
	}
}

// pathOnly strips the query string from a navigation target.
func pathOnly(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}
