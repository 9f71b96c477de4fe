package local

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds provider tuning. Zero values pick safe defaults.
type Config struct {
	// SigningKey signs ID tokens. Required for IDToken/VerifyIDToken.
	SigningKey string

	// TokenExpiration is the ID token lifetime in hours.
	// Default: 24.
	TokenExpiration int

	// Issuer is the `iss` claim on minted tokens.
	// Default: "authstate.local".
	Issuer string

	// MaxLoginAttempts is how many consecutive failures trip the
	// lockout. Default: 5.
	MaxLoginAttempts int

	// LockoutWindow is how long the lockout holds after the last
	// failure. Default: 15 minutes.
	LockoutWindow time.Duration

	// MinPasswordLength rejects short passwords on account creation
	// and password updates. Default: 6.
	MinPasswordLength int

	// BcryptCost is the hashing cost. Default: bcrypt.DefaultCost.
	BcryptCost int
}

func (c Config) withDefaults() Config {
	if c.TokenExpiration <= 0 {
		c.TokenExpiration = 24
	}
	if c.Issuer == "" {
		c.Issuer = "authstate.local"
	}
	if c.MaxLoginAttempts <= 0 {
		c.MaxLoginAttempts = 5
	}
	if c.LockoutWindow <= 0 {
		c.LockoutWindow = 15 * time.Minute
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 6
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return c
}
