package authstate

import (
	"context"
	"strings"
	"time"
)

// SignUp creates an email/password account, persists a fresh profile
// document with firstTimeLogin set and triggers a verification email.
func (s *SessionStore) SignUp(ctx context.Context, p SignUpPayload) (*AuthUser, error) {
	if err := p.Validate(); err != nil {
		return nil, contextualError(err, msgCtxSignUp)
	}

	s.beginOp()
	defer s.endOp()

	identity, err := s.provider.CreateAccount(ctx, p.Email, p.Password)
	if err != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSignupFailure,
			Metadata:  map[string]any{"email": p.Email, "error": err.Error()},
		})
		return nil, contextualError(err, msgCtxSignUp)
	}

	if name := displayNameFrom(p); name != "" {
		if err := s.provider.UpdateDisplayName(ctx, name); err != nil {
			s.logger.Warn("signup: display name update failed: %v", err)
		} else {
			identity = displayNamed{Identity: identity, name: name}
		}
	}

	doc := newProfileDocument(identity, p, s.clock())
	if err := s.profiles.SetDocument(ctx, s.collection, identity.ID(), doc, false); err != nil {
		return nil, contextualError(err, msgCtxSignUp)
	}

	if err := s.provider.SendEmailVerification(ctx); err != nil {
		return nil, contextualError(err, msgCtxSignUp)
	}

	user := mergeIdentity(identity, doc)
	s.publishUser(user)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSignupSuccess,
		UserID:    user.ID,
		Role:      user.Role,
	})

	return user.Clone(), nil
}

// SignIn authenticates an email/password account and enforces the
// claimed role against the stored profile. A missing or mismatched
// role signs the session back out before the error is surfaced, so a
// half authenticated state never leaks into the UI.
func (s *SessionStore) SignIn(ctx context.Context, p SignInPayload) (*AuthUser, error) {
	if err := p.Validate(); err != nil {
		return nil, contextualError(err, msgCtxSignIn)
	}

	s.beginOp()
	defer s.endOp()

	identity, err := s.provider.SignInWithPassword(ctx, p.Email, p.Password)
	if err != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": p.Email, "error": err.Error()},
		})
		return nil, contextualError(err, msgCtxSignIn)
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, identity.ID())
	if err != nil && !IsDocumentNotFound(err) {
		s.abandonSession(ctx)
		return nil, contextualError(err, msgCtxSignIn)
	}

	storedRole, _ := ParseRole(docString(doc, FieldRole))
	if storedRole == RoleUnset {
		s.abandonSession(ctx)
		return nil, contextualError(ErrRoleNotSet, msgCtxSignIn)
	}

	if storedRole != p.Role {
		s.abandonSession(ctx)
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			UserID:    identity.ID(),
			Metadata: map[string]any{
				"stored_role":    storedRole,
				"attempted_role": p.Role,
			},
		})
		return nil, contextualError(NewRoleMismatchError(storedRole, p.Role), msgCtxSignIn)
	}

	s.trackLogin(ctx, identity.ID(), doc)

	user := mergeIdentity(identity, doc)
	s.publishUser(user)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID,
		Role:      user.Role,
	})

	return user.Clone(), nil
}

// SignInWithSocial runs a popup based provider flow. First time social
// identities get a profile document with the optional role (or none)
// and firstTimeLogin set; returning identities get login tracking.
func (s *SessionStore) SignInWithSocial(ctx context.Context, kind ProviderKind, role Role) (*AuthUser, error) {
	if role != RoleUnset {
		if _, ok := ParseRole(role); !ok {
			return nil, contextualError(ErrInvalidRole, msgCtxSocial)
		}
	}

	s.beginOp()
	defer s.endOp()

	identity, err := s.provider.SignInWithProviderPopup(ctx, kind)
	if err != nil {
		return nil, contextualError(err, msgCtxSocial)
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, identity.ID())
	switch {
	case IsDocumentNotFound(err):
		doc = socialProfileDocument(identity, role, s.clock())
		if err := s.profiles.SetDocument(ctx, s.collection, identity.ID(), doc, false); err != nil {
			s.logger.Error("social login: profile create failed: %v", err)
			doc = nil
		}
	case err != nil:
		// Degrade to an identity-only session; role-completion policy
		// routes the user through selection on the next navigation.
		s.logger.Error("social login: profile read failed: %v", err)
		doc = nil
	default:
		s.trackLogin(ctx, identity.ID(), doc)
	}

	user := mergeIdentity(identity, doc)
	s.publishUser(user)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSocialLogin,
		UserID:    user.ID,
		Provider:  kind,
		Role:      user.Role,
	})

	return user.Clone(), nil
}

// SignOut clears the provider session. The in-memory user resets only
// after the provider confirms, never optimistically. Safe to call when
// already signed out.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.beginOp()
	defer s.endOp()

	prev := s.CurrentUser()
	if err := s.provider.SignOut(ctx); err != nil {
		return contextualError(err, msgCtxGeneral)
	}
	s.publishUser(nil)

	if prev != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSignOut,
			UserID:    prev.ID,
		})
	}
	return nil
}

// UpdateUserRole merges the role into the profile document and updates
// the in-memory user synchronously, so guards see the new role without
// a round trip.
func (s *SessionStore) UpdateUserRole(ctx context.Context, role Role) error {
	current := s.CurrentUser()
	if current == nil {
		return contextualError(ErrNoUser, msgCtxGeneral)
	}
	if _, ok := ParseRole(role); !ok {
		return contextualError(ErrInvalidRole, msgCtxGeneral)
	}

	s.beginOp()
	defer s.endOp()

	if err := s.profiles.SetDocument(ctx, s.collection, current.ID, Document{FieldRole: role}, true); err != nil {
		s.logger.Error("update role: persist failed: %v", err)
		return contextualError(ErrUpdateRoleFailed, msgCtxGeneral)
	}

	s.mutateUser(func(u *AuthUser) {
		u.Role = role
	})

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRoleChanged,
		UserID:    current.ID,
		Role:      role,
	})

	return nil
}

// UserNeedsRoleSelection reports whether the signed in user still has
// no role in the persisted profile. Always reads the store, never a
// cache; read failures degrade to false so a transient outage lets the
// user through instead of trapping them in a redirect loop.
func (s *SessionStore) UserNeedsRoleSelection(ctx context.Context) bool {
	role, err := s.persistedRole(ctx)
	if err != nil {
		if !IsCode(err, TextCodeNoUser) {
			s.logger.Error("role selection check failed: %v", err)
		}
		return false
	}
	return role == RoleUnset
}

// FirstTimeLoginStatus reports whether the persisted firstTimeLogin
// flag is explicitly true. Read failures degrade to false.
func (s *SessionStore) FirstTimeLoginStatus(ctx context.Context) bool {
	first, err := s.firstTimeLoginStatus(ctx)
	if err != nil {
		if !IsCode(err, TextCodeNoUser) {
			s.logger.Error("first time login check failed: %v", err)
		}
		return false
	}
	return first
}

// IsFirstTimeLogin treats a missing flag as true: accounts that predate
// the field count as first timers. FirstTimeLoginStatus is the strict
// variant used for navigation gating.
func (s *SessionStore) IsFirstTimeLogin(ctx context.Context) bool {
	current := s.CurrentUser()
	if current == nil {
		return false
	}
	doc, err := s.profiles.GetDocument(ctx, s.collection, current.ID)
	if err != nil {
		if !IsDocumentNotFound(err) {
			s.logger.Error("first time login check failed: %v", err)
		}
		return false
	}
	return docBool(doc, FieldFirstTimeLogin, true)
}

// MarkFirstTimeLoginComplete clears the flag after onboarding finishes.
func (s *SessionStore) MarkFirstTimeLoginComplete(ctx context.Context) error {
	current := s.CurrentUser()
	if current == nil {
		return contextualError(ErrNoUser, msgCtxGeneral)
	}

	update := Document{FieldFirstTimeLogin: false}
	if err := s.profiles.SetDocument(ctx, s.collection, current.ID, update, true); err != nil {
		return contextualError(err, msgCtxGeneral)
	}

	s.mutateUser(func(u *AuthUser) {
		u.FirstTimeLogin = false
	})
	return nil
}

// GetUserData returns the raw profile document for the signed in user,
// nil when signed out or when no document exists.
func (s *SessionStore) GetUserData(ctx context.Context) (Document, error) {
	current := s.CurrentUser()
	if current == nil {
		return nil, nil
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, current.ID)
	if IsDocumentNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, contextualError(err, msgCtxGeneral)
	}
	return doc, nil
}

// SendPasswordReset asks the provider to mail a reset link.
func (s *SessionStore) SendPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return contextualError(ErrMissingEmail, msgCtxReset)
	}
	if err := s.provider.SendPasswordReset(ctx, email); err != nil {
		return contextualError(err, msgCtxReset)
	}
	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordReset,
		Metadata:  map[string]any{"email": email},
	})
	return nil
}

// SendEmailVerification re-sends the verification email for the signed
// in user.
func (s *SessionStore) SendEmailVerification(ctx context.Context) error {
	if s.CurrentUser() == nil {
		return contextualError(ErrNoUser, msgCtxVerify)
	}
	if err := s.provider.SendEmailVerification(ctx); err != nil {
		return contextualError(err, msgCtxVerify)
	}
	s.recordActivity(ctx, ActivityEvent{EventType: ActivityEventVerificationTx})
	return nil
}

// UpdatePassword re-authenticates with the current password before
// applying the new one.
func (s *SessionStore) UpdatePassword(ctx context.Context, newPassword, currentPassword string) error {
	current := s.CurrentUser()
	if current == nil || current.Email == "" {
		return contextualError(ErrNoUser, msgCtxGeneral)
	}

	s.beginOp()
	defer s.endOp()

	if err := s.provider.UpdatePassword(ctx, currentPassword, newPassword); err != nil {
		return contextualError(err, msgCtxGeneral)
	}
	return nil
}

// UpdateUserProfile updates the display name on the provider and the
// in-memory user.
func (s *SessionStore) UpdateUserProfile(ctx context.Context, displayName string) error {
	if s.CurrentUser() == nil {
		return contextualError(ErrNoUser, msgCtxGeneral)
	}
	if err := s.provider.UpdateDisplayName(ctx, displayName); err != nil {
		return contextualError(err, msgCtxGeneral)
	}
	s.mutateUser(func(u *AuthUser) {
		u.DisplayName = displayName
	})
	return nil
}

// persistedRole reads the role straight from the profile store.
func (s *SessionStore) persistedRole(ctx context.Context) (Role, error) {
	current := s.CurrentUser()
	if current == nil {
		return RoleUnset, ErrNoUser
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, current.ID)
	if IsDocumentNotFound(err) {
		return RoleUnset, nil
	}
	if err != nil {
		return RoleUnset, err
	}

	role, _ := ParseRole(docString(doc, FieldRole))
	return role, nil
}

// firstTimeLoginStatus reads the strict flag from the profile store.
func (s *SessionStore) firstTimeLoginStatus(ctx context.Context) (bool, error) {
	current := s.CurrentUser()
	if current == nil {
		return false, ErrNoUser
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, current.ID)
	if IsDocumentNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return docBool(doc, FieldFirstTimeLogin, false), nil
}

// trackLogin stamps lastLoginAt and clears firstTimeLogin when it was
// previously set. Failures are logged only; login tracking must never
// fail a successful sign in. The in-memory doc is updated so the
// merged user reflects the write.
func (s *SessionStore) trackLogin(ctx context.Context, id string, doc Document) {
	update := Document{
		FieldLastLoginAt: s.clock().UTC().Format(time.RFC3339),
	}
	if docBool(doc, FieldFirstTimeLogin, true) {
		update[FieldFirstTimeLogin] = false
	}

	if err := s.profiles.SetDocument(ctx, s.collection, id, update, true); err != nil {
		s.logger.Warn("login tracking update failed: %v", err)
		return
	}

	if doc != nil {
		for k, v := range update {
			doc[k] = v
		}
	}
}

// abandonSession signs the provider session back out after a failed
// role check mid sign in. Errors here are logged; the caller's error
// is the one that matters.
func (s *SessionStore) abandonSession(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("abandon session: provider sign out failed: %v", err)
	}
	s.publishUser(nil)
}

func displayNameFrom(p SignUpPayload) string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// displayNamed overlays an updated display name on a provider identity
// without another provider round trip.
type displayNamed struct {
	Identity
	name string
}

func (d displayNamed) DisplayName() string { return d.name }
