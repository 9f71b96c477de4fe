// Package local is an in-process IdentityProvider backed by bcrypt
// hashed credentials and HS256 ID tokens. It implements the full
// provider surface the session store needs, including lockout after
// repeated failures, social popup completion via pluggable handlers,
// and email verification and password reset token flows.
//
// It is the provider used in tests and single-node deployments; hosted
// identity services plug in behind the same interface.
package local
