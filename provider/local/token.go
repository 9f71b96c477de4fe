package local

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authstate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var (
	// ErrResetTokenInvalid marks an unknown or already consumed
	// password reset token.
	ErrResetTokenInvalid = goerrors.New(
		"invalid or expired password reset token",
		goerrors.CategoryAuth,
	).WithTextCode("auth_invalid_reset_token").WithCode(goerrors.CodeUnauthorized)

	// ErrVerificationTokenInvalid marks an unknown or already consumed
	// email verification token.
	ErrVerificationTokenInvalid = goerrors.New(
		"invalid or expired verification token",
		goerrors.CategoryAuth,
	).WithTextCode("auth_invalid_verification_token").WithCode(goerrors.CodeUnauthorized)

	errNoSigningKey = goerrors.New(
		"provider has no signing key configured",
		goerrors.CategoryOperation,
	)
)

// IDToken mints a signed token for the active session, suitable for
// authenticating API calls made on the user's behalf.
func (p *Provider) IDToken(ctx context.Context) (string, error) {
	if p.config.SigningKey == "" {
		return "", errNoSigningKey
	}

	p.mu.Lock()
	acct := p.current
	p.mu.Unlock()

	if acct == nil {
		return "", authstate.ErrNoUser
	}

	now := p.clock()
	claims := jwt.RegisteredClaims{
		Issuer:    p.config.Issuer,
		Subject:   acct.id,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(p.config.TokenExpiration) * time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.config.SigningKey))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign id token")
	}

	return signed, nil
}

// VerifyIDToken validates a minted token and returns the subject, the
// account id it was minted for.
func (p *Provider) VerifyIDToken(raw string) (string, error) {
	if p.config.SigningKey == "" {
		return "", errNoSigningKey
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, goerrors.New("unexpected signing method", goerrors.CategoryAuth)
		}
		return []byte(p.config.SigningKey), nil
	}, jwt.WithIssuer(p.config.Issuer), jwt.WithTimeFunc(p.clock))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryAuth, "invalid id token").
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims.Subject, nil
}
