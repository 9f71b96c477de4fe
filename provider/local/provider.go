package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-authstate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SocialProfile is what a completed popup flow asserts about the user.
type SocialProfile struct {
	Subject       string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// PopupFunc completes a social sign in for one provider kind. It blocks
// until the flow finishes and returns the asserted profile, or
// authstate.ErrPopupClosed / authstate.ErrPopupBlocked when the user or
// the browser killed the window.
type PopupFunc func(ctx context.Context) (SocialProfile, error)

// Provider is an in-process IdentityProvider. All state lives behind a
// single mutex; listener callbacks run outside it.
type Provider struct {
	config   Config
	logger   authstate.Logger
	notifier Notifier
	clock    func() time.Time

	mu           sync.Mutex
	accounts     map[string]*account // keyed by lowercased email
	byID         map[string]*account
	current      *account
	popups       map[authstate.ProviderKind]PopupFunc
	resetTokens  map[string]string // token -> email
	verifyTokens map[string]string // token -> email
	listeners    map[int]func(authstate.Identity)
	nextListener int
}

// NewProvider builds a provider with the given config.
func NewProvider(config Config) *Provider {
	return &Provider{
		config:       config.withDefaults(),
		logger:       noopLogger{},
		notifier:     noopNotifier{},
		clock:        time.Now,
		accounts:     map[string]*account{},
		byID:         map[string]*account{},
		popups:       map[authstate.ProviderKind]PopupFunc{},
		resetTokens:  map[string]string{},
		verifyTokens: map[string]string{},
		listeners:    map[int]func(authstate.Identity){},
	}
}

func (p *Provider) WithLogger(logger authstate.Logger) *Provider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithNotifier wires the mail delivery hook.
func (p *Provider) WithNotifier(notifier Notifier) *Provider {
	if notifier != nil {
		p.notifier = notifier
	}
	return p
}

// WithPopup registers the completion handler for one social provider.
func (p *Provider) WithPopup(kind authstate.ProviderKind, fn PopupFunc) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.popups[kind] = fn
	return p
}

// WithClock overrides the time source, used by lockout tests.
func (p *Provider) WithClock(clock func() time.Time) *Provider {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// CreateAccount registers an email/password account and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (authstate.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, authstate.ErrMissingEmail
	}
	if password == "" {
		return nil, authstate.ErrMissingPassword
	}
	if len(password) < p.config.MinPasswordLength {
		return nil, authstate.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.config.BcryptCost)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return nil, authstate.ErrEmailInUse
	}

	now := p.clock()
	acct := &account{
		id:           accountID(email),
		email:        email,
		passwordHash: string(hash),
		social:       map[authstate.ProviderKind]bool{},
		createdAt:    now,
		lastSignInAt: now,
	}
	p.accounts[email] = acct
	p.byID[acct.id] = acct
	p.current = acct
	ident := acct.identity()
	fns := p.listenersLocked()
	p.mu.Unlock()

	p.logger.Info("account created: %s", acct.id)
	notify(fns, ident)
	return ident, nil
}

// SignInWithPassword authenticates an email/password account.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (authstate.Identity, error) {
	email = normalizeEmail(email)

	p.mu.Lock()
	acct, ok := p.accounts[email]
	if !ok {
		p.mu.Unlock()
		return nil, authstate.ErrUserNotFound
	}
	if acct.disabled {
		p.mu.Unlock()
		return nil, authstate.ErrUserDisabled
	}

	now := p.clock()
	if acct.failedAttempts >= p.config.MaxLoginAttempts {
		if now.Sub(acct.lastFailedAt) < p.config.LockoutWindow {
			p.mu.Unlock()
			return nil, authstate.ErrTooManyRequests
		}
		acct.failedAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password)); err != nil {
		acct.failedAttempts++
		acct.lastFailedAt = now
		p.mu.Unlock()
		return nil, authstate.ErrInvalidCredentials
	}

	acct.failedAttempts = 0
	acct.lastSignInAt = now
	p.current = acct
	ident := acct.identity()
	fns := p.listenersLocked()
	p.mu.Unlock()

	notify(fns, ident)
	return ident, nil
}

// SignInWithProviderPopup runs the registered popup flow for the given
// provider and resolves it to an account, creating one on first sign in.
func (p *Provider) SignInWithProviderPopup(ctx context.Context, kind authstate.ProviderKind) (authstate.Identity, error) {
	p.mu.Lock()
	popup, ok := p.popups[kind]
	p.mu.Unlock()
	if !ok {
		return nil, goerrors.New(
			"no popup handler registered for provider",
			goerrors.CategoryOperation,
		).WithMetadata(map[string]any{"provider": string(kind)})
	}

	profile, err := popup(ctx)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, authstate.ErrMissingEmail
	}

	p.mu.Lock()
	acct, exists := p.accounts[email]
	if exists {
		if acct.disabled {
			p.mu.Unlock()
			return nil, authstate.ErrUserDisabled
		}
		// A password account not previously linked to this provider
		// cannot be silently taken over by a social assertion.
		if acct.passwordHash != "" && !acct.social[kind] {
			p.mu.Unlock()
			return nil, authstate.ErrAccountExists
		}
	} else {
		acct = &account{
			id:          accountID(email),
			email:       email,
			displayName: profile.DisplayName,
			social:      map[authstate.ProviderKind]bool{},
			createdAt:   p.clock(),
		}
		p.accounts[email] = acct
		p.byID[acct.id] = acct
	}

	acct.social[kind] = true
	if profile.EmailVerified {
		acct.emailVerified = true
	}
	if acct.displayName == "" {
		acct.displayName = profile.DisplayName
	}
	acct.lastSignInAt = p.clock()
	p.current = acct
	ident := acct.identity()
	fns := p.listenersLocked()
	p.mu.Unlock()

	notify(fns, ident)
	return ident, nil
}

// SignOut clears the provider session. Signing out while signed out is
// a no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	wasSignedIn := p.current != nil
	p.current = nil
	fns := p.listenersLocked()
	p.mu.Unlock()

	if wasSignedIn {
		notify(fns, nil)
	}
	return nil
}

// SendPasswordReset issues a reset token for the account and hands it
// to the notifier.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	p.mu.Lock()
	if _, ok := p.accounts[email]; !ok {
		p.mu.Unlock()
		return authstate.ErrUserNotFound
	}
	token := uuid.NewString()
	p.resetTokens[token] = email
	p.mu.Unlock()

	return p.notifier.PasswordResetEmail(ctx, email, token)
}

// ConfirmPasswordReset consumes a reset token and installs the new
// password. A completed reset also proves mailbox ownership, so the
// email is marked verified.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < p.config.MinPasswordLength {
		return authstate.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.config.BcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.resetTokens[token]
	if !ok {
		return ErrResetTokenInvalid
	}
	acct, ok := p.accounts[email]
	if !ok {
		return authstate.ErrUserNotFound
	}

	delete(p.resetTokens, token)
	acct.passwordHash = string(hash)
	acct.emailVerified = true
	acct.failedAttempts = 0
	return nil
}

// SendEmailVerification issues a verification token for the signed in
// account.
func (p *Provider) SendEmailVerification(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return authstate.ErrNoUser
	}
	email := p.current.email
	token := uuid.NewString()
	p.verifyTokens[token] = email
	p.mu.Unlock()

	return p.notifier.VerificationEmail(ctx, email, token)
}

// VerifyEmail consumes a verification token. When the verified account
// is the active session, listeners get a refreshed identity.
func (p *Provider) VerifyEmail(ctx context.Context, token string) error {
	p.mu.Lock()
	email, ok := p.verifyTokens[token]
	if !ok {
		p.mu.Unlock()
		return ErrVerificationTokenInvalid
	}
	acct, ok := p.accounts[email]
	if !ok {
		p.mu.Unlock()
		return authstate.ErrUserNotFound
	}

	delete(p.verifyTokens, token)
	acct.emailVerified = true

	var fns []func(authstate.Identity)
	var ident authstate.Identity
	if p.current == acct {
		fns = p.listenersLocked()
		ident = acct.identity()
	}
	p.mu.Unlock()

	notify(fns, ident)
	return nil
}

// UpdateDisplayName sets the display name on the signed in account.
func (p *Provider) UpdateDisplayName(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return authstate.ErrNoUser
	}
	p.current.displayName = name
	return nil
}

// UpdatePassword replaces the password after reauthenticating with the
// current one. Social-only accounts set their first password here.
func (p *Provider) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	if len(newPassword) < p.config.MinPasswordLength {
		return authstate.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.config.BcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return authstate.ErrNoUser
	}
	if p.current.passwordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(p.current.passwordHash), []byte(currentPassword)); err != nil {
			return authstate.ErrInvalidCredentials
		}
	}
	p.current.passwordHash = string(hash)
	return nil
}

// DisableAccount blocks future sign ins for the account. The active
// session, if it belongs to that account, is torn down.
func (p *Provider) DisableAccount(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	p.mu.Lock()
	acct, ok := p.accounts[email]
	if !ok {
		p.mu.Unlock()
		return authstate.ErrUserNotFound
	}
	acct.disabled = true

	var fns []func(authstate.Identity)
	if p.current == acct {
		p.current = nil
		fns = p.listenersLocked()
	}
	p.mu.Unlock()

	notify(fns, nil)
	return nil
}

// OnIdentityChange registers a listener and invokes it once with the
// current identity. The returned func unsubscribes.
func (p *Provider) OnIdentityChange(fn func(authstate.Identity)) func() {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn

	var ident authstate.Identity
	if p.current != nil {
		ident = p.current.identity()
	}
	p.mu.Unlock()

	fn(ident)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// CurrentIdentity returns the active session's identity, nil when
// signed out.
func (p *Provider) CurrentIdentity() authstate.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	return p.current.identity()
}

func (p *Provider) listenersLocked() []func(authstate.Identity) {
	fns := make([]func(authstate.Identity), 0, len(p.listeners))
	for id := 0; id < p.nextListener; id++ {
		if fn, ok := p.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func notify(fns []func(authstate.Identity), ident authstate.Identity) {
	for _, fn := range fns {
		fn(ident)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ authstate.IdentityProvider = (*Provider)(nil)

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
