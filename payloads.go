package authstate

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// SignUpPayload carries everything needed to create an account.
type SignUpPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Validate checks the payload before any provider call is made.
// Validation failures surface with the same taxonomy as provider errors
// so the UI handles them uniformly.
func (p SignUpPayload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&p.Role, validation.Required, validation.In(RoleMentor, RoleMentee)),
	)
	if err != nil {
		if verr, ok := err.(validation.Errors); ok {
			if _, bad := verr["email"]; bad {
				if p.Email == "" {
					return ErrMissingEmail
				}
				return ErrInvalidEmail
			}
			if _, bad := verr["password"]; bad {
				if p.Password == "" {
					return ErrMissingPassword
				}
				return ErrWeakPassword
			}
			if _, bad := verr["role"]; bad {
				return ErrInvalidRole
			}
		}
		return ErrInvalidRole
	}

	if p.Phone != "" {
		if !validPhone(p.Phone) {
			return ErrInvalidPhone
		}
	}

	return nil
}

// SignInPayload carries the credentials plus the role the user claims
// at the sign in form; the stored role must match it.
type SignInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (p SignInPayload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
		validation.Field(&p.Role, validation.Required, validation.In(RoleMentor, RoleMentee)),
	)
	if err == nil {
		return nil
	}
	if verr, ok := err.(validation.Errors); ok {
		if _, bad := verr["email"]; bad {
			if p.Email == "" {
				return ErrMissingEmail
			}
			return ErrInvalidEmail
		}
		if _, bad := verr["password"]; bad {
			return ErrMissingPassword
		}
	}
	return ErrInvalidRole
}

// validPhone accepts E.164 style numbers; region-less local numbers are
// parsed against a US default like the signup form does.
func validPhone(raw string) bool {
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}
