package authstate

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCollection is the profile store collection holding user docs.
const DefaultCollection = "users"

// Snapshot is an immutable view of the session state. While Loading is
// true, User must not be used for authorization decisions; consumers
// wait for AwaitReady instead.
type Snapshot struct {
	User    *AuthUser
	Loading bool
}

// Authenticated reports whether a user is signed in. Only meaningful
// once Loading is false.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// ListenerFunc receives state transitions. Invoked synchronously, in
// registration order, outside the store's lock.
type ListenerFunc func(Snapshot)

// SessionStore is the single source of truth for "who is signed in"
// and "is that determination ready yet". All mutation funnels through
// its methods; guards and UI surfaces only read.
type SessionStore struct {
	provider   IdentityProvider
	profiles   ProfileStore
	collection string
	logger     Logger
	sink       ActivitySink
	clock      func() time.Time

	mu           sync.Mutex
	user         *AuthUser
	loading      bool
	opDepth      int
	listeners    map[int]ListenerFunc
	nextListener int
	readyWaiters []chan struct{}
	unsubscribe  func()
}

// Option customizes SessionStore construction.
type Option func(*SessionStore)

// WithLogger overrides the default printf logger.
func WithLogger(logger Logger) Option {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink configures the audit sink for auth events.
func WithActivitySink(sink ActivitySink) Option {
	return func(s *SessionStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *SessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCollection overrides the profile document collection name.
func WithCollection(name string) Option {
	return func(s *SessionStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// NewSessionStore builds a store wired to the given adapters. The store
// starts in the loading state; call Start to begin consuming identity
// changes, which resolves the initial state.
func NewSessionStore(provider IdentityProvider, profiles ProfileStore, opts ...Option) *SessionStore {
	s := &SessionStore{
		provider:   provider,
		profiles:   profiles,
		collection: DefaultCollection,
		logger:     defLogger{},
		sink:       noopActivitySink{},
		clock:      time.Now,
		loading:    true,
		listeners:  map[int]ListenerFunc{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start subscribes to the identity provider's change stream. The
// provider invokes the callback once with the current identity, so the
// initial loading state resolves here.
func (s *SessionStore) Start(ctx context.Context) {
	s.unsubscribe = s.provider.OnIdentityChange(func(identity Identity) {
		s.handleIdentityChange(ctx, identity)
	})
}

// Close detaches the identity change listener.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// handleIdentityChange is the single merge path for raw identity
// events: resolve the profile document, merge, publish. Profile read
// failures degrade to an identity-only user rather than wedging the
// loading flag; role-completion policy picks the gaps up later.
func (s *SessionStore) handleIdentityChange(ctx context.Context, identity Identity) {
	if identity == nil {
		s.publishUser(nil)
		return
	}

	doc, err := s.profiles.GetDocument(ctx, s.collection, identity.ID())
	if err != nil && !IsDocumentNotFound(err) {
		s.logger.Error("identity change: profile read failed: %v", err)
		doc = nil
	}

	s.publishUser(mergeIdentity(identity, doc))
}

// Subscribe registers a listener and returns its registration ID. The
// listener immediately receives the current snapshot.
func (s *SessionStore) Subscribe(fn ListenerFunc) int {
	if fn == nil {
		return -1
	}

	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	return id
}

// Unsubscribe removes a previously registered listener.
func (s *SessionStore) Unsubscribe(id int) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// Snapshot returns the current state. Callers that gate authorization
// must use AwaitReady instead; reading during loading is the redirect
// flicker bug class this package exists to prevent.
func (s *SessionStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AwaitReady blocks until loading is false and returns the snapshot as
// of that moment. This is the loading gate every guard goes through.
func (s *SessionStore) AwaitReady(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if !s.loading {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	ch := make(chan struct{})
	s.readyWaiters = append(s.readyWaiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while awaiting auth resolution",
		)
	}
}

// CurrentUser returns a copy of the signed in user, or nil.
func (s *SessionStore) CurrentUser() *AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Loading reports whether the auth determination is still pending.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Authenticated reports whether a user is signed in.
func (s *SessionStore) Authenticated() bool {
	return s.CurrentUser() != nil
}

// EmailVerified reports whether the signed in user verified their email.
func (s *SessionStore) EmailVerified() bool {
	u := s.CurrentUser()
	return u != nil && u.EmailVerified
}

// UserRole returns the in-memory role of the signed in user.
func (s *SessionStore) UserRole() Role {
	u := s.CurrentUser()
	if u == nil {
		return RoleUnset
	}
	return u.Role
}

func (s *SessionStore) IsMentor() bool { return s.UserRole() == RoleMentor }
func (s *SessionStore) IsMentee() bool { return s.UserRole() == RoleMentee }

// beginOp marks a mutation in flight. Loading flips true once for the
// outermost operation; nested mutation calls must not double toggle.
func (s *SessionStore) beginOp() {
	s.mu.Lock()
	s.opDepth++
	changed := false
	if s.opDepth == 1 && !s.loading {
		s.loading = true
		changed = true
	}
	snap := s.snapshotLocked()
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	if changed {
		notify(listeners, snap)
	}
}

// endOp is the finally-equivalent path: loading always resets when the
// outermost operation exits, success or failure.
func (s *SessionStore) endOp() {
	s.mu.Lock()
	s.opDepth--
	changed := false
	if s.opDepth == 0 && s.loading {
		s.loading = false
		changed = true
		s.releaseWaitersLocked()
	}
	snap := s.snapshotLocked()
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	if changed {
		notify(listeners, snap)
	}
}

// publishUser installs a new user value. Loading resolves only when no
// mutation is in flight; an identity event that fires mid operation
// updates the user but leaves the gate closed until endOp.
func (s *SessionStore) publishUser(user *AuthUser) {
	s.mu.Lock()
	s.user = user
	if s.opDepth == 0 && s.loading {
		s.loading = false
		s.releaseWaitersLocked()
	}
	snap := s.snapshotLocked()
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

// mutateUser applies an in-place change to the current user and
// notifies listeners. No-op while signed out.
func (s *SessionStore) mutateUser(fn func(*AuthUser)) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	fn(s.user)
	snap := s.snapshotLocked()
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *SessionStore) snapshotLocked() Snapshot {
	return Snapshot{User: s.user.Clone(), Loading: s.loading}
}

func (s *SessionStore) copyListenersLocked() []ListenerFunc {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]ListenerFunc, 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if fn, ok := s.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *SessionStore) releaseWaitersLocked() {
	for _, ch := range s.readyWaiters {
		close(ch)
	}
	s.readyWaiters = nil
}

func notify(listeners []ListenerFunc, snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *SessionStore) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock()
	}
	if err := normalizeActivitySink(s.sink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
