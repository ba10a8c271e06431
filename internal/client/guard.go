package client

import (
	"net/url"
	"sync/atomic"
)

// Decision is what a protected view should do right now
type Decision int

const (
	// Wait means the session has not settled, or a redirect already fired:
	// render a waiting state, do not navigate
	Wait Decision = iota
	// Proceed means the visitor is authenticated
	Proceed
	// Redirect means navigate to the returned login target
	Redirect
)

// Guard gates a protected view on the session's settled state. It fires at
// most one redirect per anonymous spell: re-checks after the first redirect
// come back as Wait, so transient re-renders cannot trigger a navigation
// loop. A sign-in rearms the latch, so a later logout redirects again.
type Guard struct {
	session    *Session
	redirected atomic.Bool
}

// NewGuard creates a guard over the session
func NewGuard(session *Session) *Guard {
	g := &Guard{session: session}
	session.subscribe(func(state State) {
		if state == StateAuthenticated {
			g.redirected.Store(false)
		}
	})
	return g
}

// Check returns the decision for a view at path. On Redirect the target is
// the login view carrying the originating path for post-login return.
func (g *Guard) Check(path string) (Decision, string) {
	switch g.session.State() {
	case StateInitializing:
		return Wait, ""
	case StateAuthenticated:
		return Proceed, ""
	default:
		if !g.redirected.CompareAndSwap(false, true) {
			return Wait, ""
		}
		return Redirect, "/login?redirectedFrom=" + url.QueryEscape(path)
	}
}
