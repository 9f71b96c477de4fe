package authstate

import goerrors "github.com/goliatone/go-errors"

// messageContext selects the wording table for a surfaced error. The
// same code reads differently during sign in, sign up, social login,
// password reset and verification flows.
type messageContext string

const (
	msgCtxSignIn  messageContext = "signin"
	msgCtxSignUp  messageContext = "signup"
	msgCtxSocial  messageContext = "social"
	msgCtxReset   messageContext = "reset"
	msgCtxVerify  messageContext = "verify"
	msgCtxGeneral messageContext = "general"
)

// baseMessages is the fallback wording per text code.
var baseMessages = map[string]string{
	TextCodeInvalidCredentials: "Invalid email or password. Please check your credentials and try again.",
	TextCodeUserNotFound:       "No account found with this email address. Please check your email or create a new account.",
	TextCodeUserDisabled:       "This account has been temporarily disabled. Please contact support.",
	TextCodeTooManyRequests:    "Too many failed login attempts. Please wait a few minutes before trying again.",
	TextCodeEmailInUse:         "An account with this email address already exists. Please sign in instead.",
	TextCodeWeakPassword:       "Password is too weak. Please use at least 6 characters with a mix of letters and numbers.",
	TextCodeInvalidEmail:       "Please enter a valid email address.",
	TextCodeMissingEmail:       "Please enter your email address.",
	TextCodeMissingPassword:    "Please enter your password.",
	TextCodeInvalidPhone:       "Please enter a valid phone number.",
	TextCodeRoleMismatch:       "Role mismatch. Please select the correct role for your account.",
	TextCodeRoleNotSet:         "Your account role is not configured. Please complete your profile setup.",
	TextCodeInvalidRole:        "Please choose either the mentor or the mentee role.",
	TextCodeNoUser:             "No user is currently signed in.",
	TextCodeUpdateRoleFailed:   "Failed to update your account role. Please try again.",
	TextCodeNetwork:            "Network connection error. Please check your internet connection and try again.",
	TextCodePopupClosed:        "Sign-in was cancelled. Please try again.",
	TextCodePopupBlocked:       "Sign-in popup was blocked. Please allow popups and try again.",
	TextCodeAccountExists:      "An account already exists with the same email but different sign-in credentials.",
	TextCodeUnknown:            "An unexpected error occurred. Please try again.",
}

// contextMessages overrides base wording with flow specific suggestions.
var contextMessages = map[messageContext]map[string]string{
	msgCtxSignIn: {
		TextCodeUserNotFound:       "No account found with this email. Would you like to create a new account?",
		TextCodeInvalidCredentials: "Incorrect password. Try again or reset your password if you forgot it.",
		TextCodeRoleNotSet:         "Your account needs to be set up. Please contact support or try social login to complete your profile.",
	},
	msgCtxSignUp: {
		TextCodeEmailInUse:   "An account with this email already exists. Please sign in instead or use a different email.",
		TextCodeWeakPassword: "Please choose a stronger password with at least 6 characters, including letters and numbers.",
	},
	msgCtxReset: {
		TextCodeUserNotFound: "No account found with this email address. Please check the spelling or create a new account.",
	},
	msgCtxSocial: {
		TextCodePopupBlocked: "Sign-in popup was blocked. Please enable popups for this site and try again.",
		TextCodePopupClosed:  "Sign-in was cancelled. Click the button again to continue with social login.",
	},
}

// contextualError normalizes any error into the `{code, message}` shape
// with context aware wording. No raw provider error crosses the store
// boundary without passing through here. Role mismatch keeps its
// role-specific message untouched.
func contextualError(err error, ctx messageContext) error {
	if err == nil {
		return nil
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return goerrors.Wrap(err, goerrors.CategoryAuth, messageFor(TextCodeUnknown, ctx)).
			WithTextCode(TextCodeUnknown).
			WithCode(goerrors.CodeInternal)
	}

	code := rich.TextCode
	if code == "" {
		code = TextCodeUnknown
	}
	if code == TextCodeRoleMismatch {
		return rich
	}

	clone := rich.Clone()
	if clone == nil {
		clone = rich
	}
	clone.Message = messageFor(code, ctx)
	if clone.TextCode == "" {
		clone.WithTextCode(TextCodeUnknown)
	}
	return clone
}

// messageFor resolves the user facing message for a code in a context.
func messageFor(textCode string, ctx messageContext) string {
	if table, ok := contextMessages[ctx]; ok {
		if msg, ok := table[textCode]; ok {
			return msg
		}
	}
	if msg, ok := baseMessages[textCode]; ok {
		return msg
	}
	return baseMessages[TextCodeUnknown]
}
