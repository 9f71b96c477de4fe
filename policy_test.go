package authstate_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-authstate"
	"github.com/goliatone/go-authstate/provider/local"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRoleCompletion(t *testing.T) {
	cases := []struct {
		name string
		user *authstate.AuthUser
		want authstate.RoleCompletionStatus
	}{
		{
			name: "signed out",
			user: nil,
			want: authstate.StatusComplete,
		},
		{
			name: "no role yet",
			user: &authstate.AuthUser{ID: "u1"},
			want: authstate.StatusNeedsRoleSelection,
		},
		{
			name: "first time mentor",
			user: &authstate.AuthUser{ID: "u1", Role: authstate.RoleMentor, FirstTimeLogin: true},
			want: authstate.StatusNeedsMentorSetup,
		},
		{
			name: "first time mentee",
			user: &authstate.AuthUser{ID: "u1", Role: authstate.RoleMentee, FirstTimeLogin: true},
			want: authstate.StatusComplete,
		},
		{
			name: "returning mentor",
			user: &authstate.AuthUser{ID: "u1", Role: authstate.RoleMentor},
			want: authstate.StatusComplete,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, authstate.DeriveRoleCompletion(tc.user))
		})
	}
}

func TestPolicyEvaluateSignedOut(t *testing.T) {
	env := newTestEnv(t)
	policy := authstate.NewRoleCompletionPolicy(env.store)

	status, err := policy.Evaluate(context.Background())
	require.Error(t, err)
	assert.Equal(t, authstate.TextCodeNoUser, authstate.TextCodeOf(err))
	assert.Equal(t, authstate.StatusComplete, status)
}

func TestPolicyEvaluateReadsPersistedState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	policy := authstate.NewRoleCompletionPolicy(env.store)

	env.provider.WithPopup(authstate.ProviderGoogle, func(ctx context.Context) (local.SocialProfile, error) {
		return local.SocialProfile{Email: "mentor@example.com", DisplayName: "Alan Kay"}, nil
	})

	_, err := env.store.SignInWithSocial(ctx, authstate.ProviderGoogle, authstate.RoleUnset)
	require.NoError(t, err)

	status, err := policy.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, authstate.StatusNeedsRoleSelection, status)

	require.NoError(t, env.store.UpdateUserRole(ctx, authstate.RoleMentor))

	status, err = policy.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, authstate.StatusNeedsMentorSetup, status)

	require.NoError(t, env.store.MarkFirstTimeLoginComplete(ctx))

	status, err = policy.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, authstate.StatusComplete, status)
}

// failingProfiles errors on every read, standing in for a store outage.
type failingProfiles struct{}

func (failingProfiles) GetDocument(ctx context.Context, collection, id string) (authstate.Document, error) {
	return nil, goerrors.New("profile store unavailable", goerrors.CategoryOperation)
}

func (failingProfiles) SetDocument(ctx context.Context, collection, id string, data authstate.Document, merge bool) error {
	return goerrors.New("profile store unavailable", goerrors.CategoryOperation)
}

func newOutageStore(t *testing.T) (*authstate.SessionStore, *local.Provider) {
	t.Helper()

	provider := local.NewProvider(local.Config{BcryptCost: 4})
	store := authstate.NewSessionStore(provider, failingProfiles{})
	store.Start(context.Background())
	t.Cleanup(store.Close)

	// The session survives as identity-only when the profile read fails.
	_, err := provider.CreateAccount(context.Background(), "mentee@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, store.CurrentUser())

	return store, provider
}

func TestPolicyLenientReads(t *testing.T) {
	store, _ := newOutageStore(t)
	policy := authstate.NewRoleCompletionPolicy(store)

	status, err := policy.Evaluate(context.Background())
	require.NoError(t, err, "lenient policy lets the user through on read failure")
	assert.Equal(t, authstate.StatusComplete, status)
}

func TestPolicyStrictReads(t *testing.T) {
	store, _ := newOutageStore(t)
	policy := authstate.NewRoleCompletionPolicy(store, authstate.WithStrictReads())

	_, err := policy.Evaluate(context.Background())
	require.Error(t, err)
}

func TestPostLoginDestination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	policy := authstate.NewRoleCompletionPolicy(env.store)

	assert.Equal(t, "/auth/login", policy.PostLoginDestination(ctx, "/portal/settings"),
		"signed out users land on login")

	env.provider.WithPopup(authstate.ProviderGoogle, func(ctx context.Context) (local.SocialProfile, error) {
		return local.SocialProfile{Email: "mentor@example.com", DisplayName: "Alan Kay"}, nil
	})
	_, err := env.store.SignInWithSocial(ctx, authstate.ProviderGoogle, authstate.RoleUnset)
	require.NoError(t, err)

	assert.Equal(t, "/auth/role-selection", policy.PostLoginDestination(ctx, "/portal/settings"))

	require.NoError(t, env.store.UpdateUserRole(ctx, authstate.RoleMentor))
	assert.Equal(t, "/portal/mentor-setup", policy.PostLoginDestination(ctx, "/portal/settings"))

	require.NoError(t, env.store.MarkFirstTimeLoginComplete(ctx))
	assert.Equal(t, "/portal/settings", policy.PostLoginDestination(ctx, "/portal/settings"))
	assert.Equal(t, "/portal", policy.PostLoginDestination(ctx, ""),
		"empty returnUrl falls back to the portal")
}
