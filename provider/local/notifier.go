package local

import "context"

// Notifier delivers the out-of-band mail for verification and password
// reset flows. The token is the single-use secret the user brings back.
type Notifier interface {
	VerificationEmail(ctx context.Context, email, token string) error
	PasswordResetEmail(ctx context.Context, email, token string) error
}

type noopNotifier struct{}

func (noopNotifier) VerificationEmail(ctx context.Context, email, token string) error {
	return nil
}

func (noopNotifier) PasswordResetEmail(ctx context.Context, email, token string) error {
	return nil
}
