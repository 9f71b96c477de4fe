package authstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-authstate"
	"github.com/goliatone/go-authstate/profile/memstore"
	"github.com/goliatone/go-authstate/provider/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardsWaitForAuthResolution(t *testing.T) {
	provider := local.NewProvider(local.Config{BcryptCost: 4})
	store := authstate.NewSessionStore(provider, memstore.New())
	guards := authstate.NewGuards(store)

	// Start has not run yet: the auth determination is pending and any
	// guard decision now would be premature.
	type result struct {
		decision authstate.Decision
		err      error
	}
	done := make(chan result, 1)
	go func() {
		d, err := guards.RequireAuth(context.Background(), "/portal")
		done <- result{d, err}
	}()

	select {
	case <-done:
		t.Fatal("guard decided while auth state was still loading")
	case <-time.After(50 * time.Millisecond):
	}

	store.Start(context.Background())
	t.Cleanup(store.Close)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.False(t, res.decision.Allow)
		assert.Equal(t, "/auth/login?returnUrl=%2Fportal", res.decision.RedirectTarget)
	case <-time.After(time.Second):
		t.Fatal("guard never resolved after Start")
	}
}

func TestGuardAwaitReadyCancellation(t *testing.T) {
	provider := local.NewProvider(local.Config{BcryptCost: 4})
	store := authstate.NewSessionStore(provider, memstore.New())
	guards := authstate.NewGuards(store)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := guards.RequireAuth(ctx, "/portal")
	require.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guards := authstate.NewGuards(env.store)

	decision, err := guards.RequireAuth(ctx, "/portal/settings")
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Equal(t, "/auth/login?returnUrl=%2Fportal%2Fsettings", decision.RedirectTarget)

	_, err = env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)

	decision, err = guards.RequireAuth(ctx, "/portal/settings")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestRequireVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guards := authstate.NewGuards(env.store)

	decision, err := guards.RequireVerifiedEmail(ctx, "/portal")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login?returnUrl=%2Fportal", decision.RedirectTarget)

	// Password signups start unverified.
	_, err = env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)

	decision, err = guards.RequireVerifiedEmail(ctx, "/portal")
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Equal(t, "/auth/verify-email?returnUrl=%2Fportal", decision.RedirectTarget)

	// Social identities arrive verified.
	require.NoError(t, env.store.SignOut(ctx))
	env.provider.WithPopup(authstate.ProviderGoogle, func(ctx context.Context) (local.SocialProfile, error) {
		return local.SocialProfile{
			Email:         "grace@example.com",
			DisplayName:   "Grace Hopper",
			EmailVerified: true,
		}, nil
	})
	_, err = env.store.SignInWithSocial(ctx, authstate.ProviderGoogle, authstate.RoleMentee)
	require.NoError(t, err)

	decision, err = guards.RequireVerifiedEmail(ctx, "/portal")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestRequireGuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guards := authstate.NewGuards(env.store)

	decision, err := guards.RequireGuest(ctx, "/auth/login")
	require.NoError(t, err)
	assert.True(t, decision.Allow)

	_, err = env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)

	decision, err = guards.RequireGuest(ctx, "/auth/login")
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Equal(t, "/portal", decision.RedirectTarget, "guest redirect carries no returnUrl")
}

func TestRequireRoleComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guards := authstate.NewGuards(env.store)

	env.provider.WithPopup(authstate.ProviderGoogle, func(ctx context.Context) (local.SocialProfile, error) {
		return local.SocialProfile{
			Email:         "mentor@example.com",
			DisplayName:   "Alan Kay",
			EmailVerified: true,
		}, nil
	})

	// Signed out: the gate defers to the login redirect.
	decision, err := guards.RequireRoleComplete(ctx, "/portal")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login?returnUrl=%2Fportal", decision.RedirectTarget)

	// First social sign in without a role: needs role selection.
	_, err = env.store.SignInWithSocial(ctx, authstate.ProviderGoogle, authstate.RoleUnset)
	require.NoError(t, err)

	decision, err = guards.RequireRoleComplete(ctx, "/portal")
	require.NoError(t, err)
	assert.Equal(t, "/auth/role-selection?returnUrl=%2Fportal", decision.RedirectTarget)

	// The role selection page itself is carved out of the gate.
	decision, err = guards.RequireRoleComplete(ctx, "/auth/role-selection?returnUrl=%2Fportal")
	require.NoError(t, err)
	assert.True(t, decision.Allow)

	// Picking mentor: first time mentors get routed through setup.
	require.NoError(t, env.store.UpdateUserRole(ctx, authstate.RoleMentor))

	decision, err = guards.RequireRoleComplete(ctx, "/mentor-dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/portal/mentor-setup?returnUrl=%2Fmentor-dashboard", decision.RedirectTarget)

	// The setup page is reachable, otherwise the redirect loops.
	decision, err = guards.RequireRoleComplete(ctx, "/portal/mentor-setup")
	require.NoError(t, err)
	assert.True(t, decision.Allow)

	// Finishing setup opens the gate.
	require.NoError(t, env.store.MarkFirstTimeLoginComplete(ctx))

	decision, err = guards.RequireRoleComplete(ctx, "/mentor-dashboard")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guards := authstate.NewGuards(env.store)
	mentorOnly := guards.RequireRole(authstate.RoleMentor)

	decision, err := mentorOnly(ctx, "/mentor-dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", decision.RedirectTarget)

	_, err = env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)

	decision, err = mentorOnly(ctx, "/mentor-dashboard")
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Equal(t, "/mentee-dashboard", decision.RedirectTarget, "mismatched roles land on their own dashboard")

	menteeOnly := guards.RequireRole(authstate.RoleMentee)
	decision, err = menteeOnly(ctx, "/mentee-dashboard")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestGuardRoutesOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	guards := authstate.NewGuards(env.store, authstate.WithGuardRoutes(authstate.GuardRoutes{
		Login: "/signin",
	}))

	decision, err := guards.RequireAuth(ctx, "/portal")
	require.NoError(t, err)
	assert.Equal(t, "/signin?returnUrl=%2Fportal", decision.RedirectTarget)
	assert.Equal(t, "/portal", guards.Routes().Portal, "unset routes fall back to defaults")
}
