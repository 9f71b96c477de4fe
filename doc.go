// Package authstate manages the authenticated-session lifecycle for the
// mentorship platform: a session store that resolves the current user
// exactly once per auth event, route guards that gate navigation on
// authentication, email verification and role completion, and the
// shared error taxonomy with per-flow user facing messages.
//
// The store composes an IdentityProvider (credentials, social popups,
// verification mail) with a ProfileStore (the persisted user document
// holding role and first-time-login state). Guards never read either
// directly; they await the store's loading gate and decide from the
// merged snapshot, which is what keeps redirect loops out of the
// navigation layer.
package authstate
