// Package access decides whether the current session may reach a protected
// destination. The gate only mirrors the backend's authorization for UX —
// claims live in client-readable storage and can be tampered with — so it
// fails safe (deny by default) and leaves real enforcement to the server.
package access

import (
	"fmt"
	"sync"

	"github.com/clearmind/redsheet/session"
)

// State is a gate evaluation phase. Checking is conceptual: evaluation is
// synchronous and needs no network round-trip.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAllowed
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a gate evaluation. Redirect is set only for
// denials: the login path for authentication failures, the landing path for
// authorization failures.
type Decision struct {
	State    State
	Redirect string
}

// Allowed reports whether protected content may render.
func (d Decision) Allowed() bool { return d.State == StateAllowed }

// Pinger sends a best-effort audit notification. Implementations must not
// block and must swallow failures.
type Pinger interface {
	Ping(action, details, level string)
}

// NopPinger discards pings.
type NopPinger struct{}

func (NopPinger) Ping(action, details, level string) {}

// Gate evaluates role requirements against the session. Create one gate per
// protected mount: the honeypot ping fires at most once per gate instance,
// however many times Evaluate runs.
type Gate struct {
	store       session.Store
	guard       *session.Guard
	pinger      Pinger
	loginPath   string
	landingPath string
	pingOnce    sync.Once
}

// NewGate wires a gate over the session store. A nil pinger disables the
// audit ping.
func NewGate(store session.Store, guard *session.Guard, pinger Pinger, loginPath, landingPath string) *Gate {
	if pinger == nil {
		pinger = NopPinger{}
	}
	return &Gate{
		store:       store,
		guard:       guard,
		pinger:      pinger,
		loginPath:   loginPath,
		landingPath: landingPath,
	}
}

// Evaluate runs the gate for a destination requiring one of the given
// roles. An empty required set admits any valid session. The decision is
// deterministic for fixed (token, required, clock); the only side effects
// are purging an invalid session and the one-shot denial ping.
func (g *Gate) Evaluate(required ...session.Role) Decision {
	token := g.store.Token()
	if token == "" {
		return Decision{State: StateDenied, Redirect: g.loginPath}
	}

	if !g.guard.Valid(token) {
		// Expired or undecodable: logout-equivalent cleanup, then back
		// to login. Token and role fall together.
		g.store.Logout()
		return Decision{State: StateDenied, Redirect: g.loginPath}
	}

	if len(required) > 0 {
		role := g.guard.CurrentRole()
		if !roleIn(role, required) {
			// Authorization failure with a valid session: send the
			// caller to the safe landing page, not login, and tell
			// the backend someone knocked on a door they cannot open.
			g.pingOnce.Do(func() {
				go g.pinger.Ping(
					"unauthorized_access_attempt",
					fmt.Sprintf("role %q denied, required one of %v", role, required),
					"security",
				)
			})
			return Decision{State: StateDenied, Redirect: g.landingPath}
		}
	}

	return Decision{State: StateAllowed}
}

func roleIn(role session.Role, set []session.Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
