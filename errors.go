package authstate

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

// Stable text codes surfaced to clients alongside a contextual message.
const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeUserNotFound       = "auth_user_not_found"
	TextCodeUserDisabled       = "auth_user_disabled"
	TextCodeTooManyRequests    = "auth_too_many_requests"
	TextCodeEmailInUse         = "auth_email_in_use"
	TextCodeWeakPassword       = "auth_weak_password"
	TextCodeInvalidEmail       = "auth_invalid_email"
	TextCodeMissingEmail       = "auth_missing_email"
	TextCodeMissingPassword    = "auth_missing_password"
	TextCodeInvalidPhone       = "auth_invalid_phone"
	TextCodeRoleMismatch       = "auth_role_mismatch"
	TextCodeRoleNotSet         = "auth_role_not_set"
	TextCodeInvalidRole        = "auth_invalid_role"
	TextCodeNoUser             = "auth_no_user"
	TextCodeUpdateRoleFailed   = "auth_update_role_failed"
	TextCodeNetwork            = "auth_network_error"
	TextCodePopupClosed        = "auth_popup_closed"
	TextCodePopupBlocked       = "auth_popup_blocked"
	TextCodeAccountExists      = "auth_account_exists_with_different_credential"
	TextCodeUnknown            = "auth_unknown"

	TextCodeDocumentNotFound = "profile_document_not_found"
)

// ErrInvalidCredentials is returned for a wrong email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when no account matches the email.
var ErrUserNotFound = errors.New("no account found for email", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserDisabled is returned for administratively disabled accounts.
var ErrUserDisabled = errors.New("account is disabled", errors.CategoryAuth).
	WithTextCode(TextCodeUserDisabled).
	WithCode(errors.CodeForbidden)

// ErrTooManyRequests is returned when the provider throttles sign in attempts.
var ErrTooManyRequests = errors.New("too many failed attempts", errors.CategoryAuth).
	WithTextCode(TextCodeTooManyRequests).
	WithCode(errors.CodeUnauthorized)

// ErrEmailInUse is returned when an account already exists for the email.
var ErrEmailInUse = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse).
	WithCode(errors.CodeConflict)

// ErrWeakPassword is returned when the password fails provider policy.
var ErrWeakPassword = errors.New("password is too weak", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// ErrInvalidEmail is returned for malformed email addresses.
var ErrInvalidEmail = errors.New("invalid email address", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(errors.CodeBadRequest)

// ErrMissingEmail is returned when the email field is empty.
var ErrMissingEmail = errors.New("email is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingEmail).
	WithCode(errors.CodeBadRequest)

// ErrMissingPassword is returned when the password field is empty.
var ErrMissingPassword = errors.New("password is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingPassword).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPhone is returned for phone numbers that fail validation.
var ErrInvalidPhone = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)

// ErrRoleNotSet is returned on password sign in when the stored profile
// has no role assigned. The session is signed back out before this is
// surfaced so a half authenticated state never reaches consumers.
var ErrRoleNotSet = errors.New("account role is not configured", errors.CategoryAuth).
	WithTextCode(TextCodeRoleNotSet).
	WithCode(errors.CodeForbidden)

// ErrInvalidRole is returned when a role value is not mentor or mentee.
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrNoUser is returned when an operation that requires a signed in
// user runs while signed out. Guards should make this unreachable.
var ErrNoUser = errors.New("no user is currently signed in", errors.CategoryAuth).
	WithTextCode(TextCodeNoUser).
	WithCode(errors.CodeUnauthorized)

// ErrUpdateRoleFailed is returned when persisting a role change fails.
var ErrUpdateRoleFailed = errors.New("failed to update user role", errors.CategoryInternal).
	WithTextCode(TextCodeUpdateRoleFailed).
	WithCode(errors.CodeInternal)

// ErrNetwork is returned for transport level provider failures.
var ErrNetwork = errors.New("network request failed", errors.CategoryOperation).
	WithTextCode(TextCodeNetwork).
	WithCode(errors.CodeInternal)

// ErrPopupClosed is returned when the user dismisses a provider popup.
// Non fatal: callers may simply retry.
var ErrPopupClosed = errors.New("sign in popup was closed", errors.CategoryAuth).
	WithTextCode(TextCodePopupClosed).
	WithCode(errors.CodeBadRequest)

// ErrPopupBlocked is returned when the provider popup could not open.
var ErrPopupBlocked = errors.New("sign in popup was blocked", errors.CategoryAuth).
	WithTextCode(TextCodePopupBlocked).
	WithCode(errors.CodeBadRequest)

// ErrAccountExists is returned when a social profile's email already
// belongs to an account with a different credential type.
var ErrAccountExists = errors.New("account exists with different credential", errors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(errors.CodeConflict)

// ErrDocumentNotFound is returned by profile stores for missing documents.
var ErrDocumentNotFound = errors.New("profile document not found", errors.CategoryNotFound).
	WithTextCode(TextCodeDocumentNotFound).
	WithCode(errors.CodeNotFound)

// NewRoleMismatchError builds the sign in rejection for an account that
// is registered under a different role than the one claimed. The message
// names both roles; it is kept as-is across message contexts.
func NewRoleMismatchError(stored, attempted Role) *errors.Error {
	msg := fmt.Sprintf(
		"You cannot sign in as a %s because your account is registered as a %s. Please select the correct role to continue.",
		RoleDisplayName(attempted),
		RoleDisplayName(stored),
	)
	return errors.New(msg, errors.CategoryAuth).
		WithTextCode(TextCodeRoleMismatch).
		WithCode(errors.CodeForbidden).
		WithMetadata(map[string]any{
			"stored_role":    stored,
			"attempted_role": attempted,
		})
}

// TextCodeOf extracts the stable text code from an error, or
// TextCodeUnknown when the error carries none.
func TextCodeOf(err error) string {
	if err == nil {
		return ""
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode != "" {
		return rich.TextCode
	}
	return TextCodeUnknown
}

// IsCode reports whether err carries the given text code.
func IsCode(err error, textCode string) bool {
	return err != nil && TextCodeOf(err) == textCode
}

// IsDocumentNotFound reports whether err is a missing-document error.
func IsDocumentNotFound(err error) bool {
	return IsCode(err, TextCodeDocumentNotFound)
}
