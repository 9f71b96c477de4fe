package authstate_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authstate"
	"github.com/goliatone/go-authstate/provider/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googlePopup(email, name string) local.PopupFunc {
	return func(ctx context.Context) (local.SocialProfile, error) {
		return local.SocialProfile{
			Email:         email,
			DisplayName:   name,
			EmailVerified: true,
		}, nil
	}
}

func postJSON(t *testing.T, app *fiber.App, target, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp.StatusCode, payload
}

func TestGuardMiddleware(t *testing.T) {
	env := newTestEnv(t)
	guards := authstate.NewGuards(env.store)

	app := fiber.New()
	app.Get("/portal", authstate.GuardMiddleware(guards.RequireAuth), func(c *fiber.Ctx) error {
		return c.SendString("welcome")
	})

	req := httptest.NewRequest("GET", "/portal", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login?returnUrl=%2Fportal", resp.Header.Get("Location"))

	_, err = env.store.SignUp(context.Background(), menteePayload())
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest("GET", "/portal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)
	require.NoError(t, env.store.SignOut(ctx))

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/login",
		`{"email":"mentee@example.com","password":"secret123","role":"mentee"}`)
	require.Equal(t, fiber.StatusOK, status)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "response carries the merged user")
	assert.Equal(t, "mentee@example.com", user["email"])
	assert.Equal(t, "mentee", user["role"])
	assert.Equal(t, "/portal", body["redirect"])
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)
	require.NoError(t, env.store.SignOut(ctx))

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/login",
		`{"email":"mentee@example.com","password":"nope","role":"mentee"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, authstate.TextCodeInvalidCredentials, body["code"])
	assert.Equal(t,
		"Incorrect password. Try again or reset your password if you forgot it.",
		body["message"])
}

func TestSignupEndpoint(t *testing.T) {
	env := newTestEnv(t)

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/signup",
		`{"email":"new@example.com","password":"secret123","role":"mentor","first_name":"Alan","last_name":"Kay"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "/auth/verify-email", body["redirect"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mentor", user["role"])
	assert.Equal(t, true, user["first_time_login"])
}

func TestRoleSelectionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.provider.WithPopup(authstate.ProviderGoogle, googlePopup("grace@example.com", "Grace Hopper"))
	_, err := env.store.SignInWithSocial(ctx, authstate.ProviderGoogle, authstate.RoleUnset)
	require.NoError(t, err)

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/role-selection?returnUrl=%2Fportal%2Fsettings",
		`{"role":"mentee"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "/portal/settings", body["redirect"])
	assert.Equal(t, authstate.RoleMentee, env.store.UserRole())
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/logout", `{}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "/auth/login", body["redirect"])
	assert.False(t, env.store.Authenticated())
}

func TestPasswordResetEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.SignUp(ctx, menteePayload())
	require.NoError(t, err)
	require.NoError(t, env.store.SignOut(ctx))

	app := fiber.New()
	authstate.RegisterAuthRoutes(app, authstate.WithControllerStore(env.store))

	status, body := postJSON(t, app, "/auth/password-reset", `{"email":"mentee@example.com"}`)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "sent", body["status"], "accepted responses carry a JSON body")
	assert.Equal(t, []string{"mentee@example.com"}, env.notifier.resets)

	status, body = postJSON(t, app, "/auth/password-reset", `{"email":"ghost@example.com"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, authstate.TextCodeUserNotFound, body["code"])
}
