package local

import (
	"time"

	"github.com/goliatone/go-authstate"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// account is the provider-side record. Email is the natural key;
// the id is derived from it so re-registrations are stable.
type account struct {
	id            string
	email         string
	passwordHash  string
	displayName   string
	emailVerified bool
	disabled      bool
	social        map[authstate.ProviderKind]bool
	createdAt     time.Time
	lastSignInAt  time.Time

	failedAttempts int
	lastFailedAt   time.Time
}

func (a *account) identity() identity {
	return identity{
		id:            a.id,
		email:         a.email,
		displayName:   a.displayName,
		emailVerified: a.emailVerified,
		createdAt:     a.createdAt,
		lastSignInAt:  a.lastSignInAt,
	}
}

// identity is the immutable snapshot handed to listeners. Accounts
// mutate under the provider lock; identities do not.
type identity struct {
	id            string
	email         string
	displayName   string
	emailVerified bool
	createdAt     time.Time
	lastSignInAt  time.Time
}

func (i identity) ID() string                { return i.id }
func (i identity) Email() string             { return i.email }
func (i identity) DisplayName() string       { return i.displayName }
func (i identity) EmailVerified() bool       { return i.emailVerified }
func (i identity) CreationTime() time.Time   { return i.createdAt }
func (i identity) LastSignInTime() time.Time { return i.lastSignInAt }

var _ authstate.Identity = identity{}

// accountID derives a stable UUID from the email, falling back to a
// random one when the email cannot be hashed.
func accountID(email string) string {
	if id, err := hashid.NewUUID(email); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
