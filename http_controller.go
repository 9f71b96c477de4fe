package authstate

import (
	"github.com/gofiber/fiber/v2"
)

// AuthControllerRoutes configures the endpoints the controller mounts.
type AuthControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	RoleSelection string
	PasswordReset string
	VerifyEmail   string
}

// AuthController exposes the session store over HTTP for the login,
// signup, role selection and verification screens. Responses are JSON;
// the client router consumes the redirect hints.
type AuthController struct {
	Store  *SessionStore
	Policy *RoleCompletionPolicy
	Logger Logger
	Routes *AuthControllerRoutes
}

// AuthControllerOption customizes controller construction.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerStore wires the session store.
func WithControllerStore(store *SessionStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

// WithControllerPolicy wires the role completion policy used for post
// login redirects.
func WithControllerPolicy(policy *RoleCompletionPolicy) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Policy = policy
		return c
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerRoutes overrides the mounted endpoints.
func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// NewAuthController builds a controller with the default route layout.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:         "/auth/login",
			Logout:        "/auth/logout",
			Register:      "/auth/signup",
			RoleSelection: "/auth/role-selection",
			PasswordReset: "/auth/password-reset",
			VerifyEmail:   "/auth/verify-email",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Policy == nil && c.Store != nil {
		c.Policy = NewRoleCompletionPolicy(c.Store)
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on a fiber router.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Logout, controller.LogoutPost)
	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.RoleSelection, controller.RoleSelectionPost)
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost)
	app.Post(controller.Routes.VerifyEmail, controller.VerificationPost)

	return controller
}

type sessionResponse struct {
	User     *AuthUser `json:"user"`
	Redirect string    `json:"redirect,omitempty"`
}

// LoginPost handles the password sign in form.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	var payload SignInPayload
	if err := c.BodyParser(&payload); err != nil {
		return errorJSON(c, contextualError(ErrMissingEmail, msgCtxSignIn))
	}

	user, err := a.Store.SignIn(c.UserContext(), payload)
	if err != nil {
		a.Logger.Info("login failed: %v", err)
		return errorJSON(c, err)
	}

	return c.JSON(sessionResponse{
		User:     user,
		Redirect: a.Policy.PostLoginDestination(c.UserContext(), c.Query("returnUrl")),
	})
}

// RegistrationCreate handles the signup form.
func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	var payload SignUpPayload
	if err := c.BodyParser(&payload); err != nil {
		return errorJSON(c, contextualError(ErrMissingEmail, msgCtxSignUp))
	}

	user, err := a.Store.SignUp(c.UserContext(), payload)
	if err != nil {
		a.Logger.Info("signup failed: %v", err)
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		User:     user,
		Redirect: a.Routes.VerifyEmail,
	})
}

type roleSelectionRequest struct {
	Role Role `json:"role"`
}

// RoleSelectionPost persists the chosen role for social sign ins that
// skipped it, then reports where to go next.
func (a *AuthController) RoleSelectionPost(c *fiber.Ctx) error {
	var req roleSelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, contextualError(ErrInvalidRole, msgCtxGeneral))
	}

	if err := a.Store.UpdateUserRole(c.UserContext(), req.Role); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(sessionResponse{
		User:     a.Store.CurrentUser(),
		Redirect: a.Policy.PostLoginDestination(c.UserContext(), c.Query("returnUrl")),
	})
}

// LogoutPost clears the session.
func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	if err := a.Store.SignOut(c.UserContext()); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(sessionResponse{Redirect: a.Routes.Login})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetPost triggers the reset email.
func (a *AuthController) PasswordResetPost(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, contextualError(ErrMissingEmail, msgCtxReset))
	}
	if err := a.Store.SendPasswordReset(c.UserContext(), req.Email); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// VerificationPost re-sends the verification email.
func (a *AuthController) VerificationPost(c *fiber.Ctx) error {
	if err := a.Store.SendEmailVerification(c.UserContext()); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}
