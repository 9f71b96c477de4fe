package authstate_test

import (
	"testing"

	"github.com/goliatone/go-authstate"
	"github.com/stretchr/testify/assert"
)

func TestSignUpPayloadValidate(t *testing.T) {
	valid := authstate.SignUpPayload{
		Email:    "ada@example.com",
		Password: "secret123",
		Role:     authstate.RoleMentee,
	}
	assert.NoError(t, valid.Validate())

	withPhone := valid
	withPhone.Phone = "+14155552671"
	assert.NoError(t, withPhone.Validate())

	withLocalPhone := valid
	withLocalPhone.Phone = "(415) 555-2671"
	assert.NoError(t, withLocalPhone.Validate())

	cases := []struct {
		name     string
		mutate   func(*authstate.SignUpPayload)
		wantCode string
	}{
		{"empty email", func(p *authstate.SignUpPayload) { p.Email = "" }, authstate.TextCodeMissingEmail},
		{"bad email", func(p *authstate.SignUpPayload) { p.Email = "nope" }, authstate.TextCodeInvalidEmail},
		{"empty password", func(p *authstate.SignUpPayload) { p.Password = "" }, authstate.TextCodeMissingPassword},
		{"short password", func(p *authstate.SignUpPayload) { p.Password = "abc12" }, authstate.TextCodeWeakPassword},
		{"empty role", func(p *authstate.SignUpPayload) { p.Role = authstate.RoleUnset }, authstate.TextCodeInvalidRole},
		{"unknown role", func(p *authstate.SignUpPayload) { p.Role = "admin" }, authstate.TextCodeInvalidRole},
		{"bad phone", func(p *authstate.SignUpPayload) { p.Phone = "12" }, authstate.TextCodeInvalidPhone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := p.Validate()
			assert.Equal(t, tc.wantCode, authstate.TextCodeOf(err))
		})
	}
}

func TestSignInPayloadValidate(t *testing.T) {
	valid := authstate.SignInPayload{
		Email:    "ada@example.com",
		Password: "whatever",
		Role:     authstate.RoleMentor,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name     string
		mutate   func(*authstate.SignInPayload)
		wantCode string
	}{
		{"empty email", func(p *authstate.SignInPayload) { p.Email = "" }, authstate.TextCodeMissingEmail},
		{"bad email", func(p *authstate.SignInPayload) { p.Email = "nope" }, authstate.TextCodeInvalidEmail},
		{"empty password", func(p *authstate.SignInPayload) { p.Password = "" }, authstate.TextCodeMissingPassword},
		{"empty role", func(p *authstate.SignInPayload) { p.Role = authstate.RoleUnset }, authstate.TextCodeInvalidRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := p.Validate()
			assert.Equal(t, tc.wantCode, authstate.TextCodeOf(err))
		})
	}
}
