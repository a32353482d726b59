package session

import "sync"

// GuardState is the state of a Guard.
type GuardState int

const (
	// Compatible means the tracked version still matches the remote one.
	Compatible GuardState = iota
	// Incompatible means the remote version changed under pending edits.
	Incompatible
)

func (s GuardState) String() string {
	switch s {
	case Compatible:
		return "COMPATIBLE"
	case Incompatible:
		return "INCOMPATIBLE"
	}
	return "UNKNOWN"
}

// Verdict tells the caller of Observe what to do about a remote version.
type Verdict int

const (
	// Ignore means there is nothing to do: the remote version is the
	// tracked one or one tracked before, or the guard already tripped.
	Ignore Verdict = iota
	// Trip means pending edits were made against a stale version. The
	// guard is now Incompatible.
	Trip
	// Reload means the remote version changed but nothing is pending; the
	// base can be replaced silently.
	Reload
)

func (v Verdict) String() string {
	switch v {
	case Ignore:
		return "IGNORE"
	case Trip:
		return "TRIP"
	case Reload:
		return "RELOAD"
	}
	return "UNKNOWN"
}

// Guard tracks the remote version a session's base was loaded from and
// detects when it changes underneath pending edits. Once tripped it stays
// Incompatible until Reset.
//
// Version tokens are opaque. Any version other than the tracked one is a
// change, except versions the guard tracked earlier: notifications for
// those are late echoes of loads and saves the session already applied.
type Guard struct {
	mu      sync.Mutex
	version string
	known   map[string]bool
	state   GuardState
}

// NewGuard returns a Compatible guard tracking version.
func NewGuard(version string) *Guard {
	g := &Guard{known: make(map[string]bool)}
	g.track(version)
	return g
}

// Observe evaluates a remote version. pending reports whether edits are
// waiting to be saved.
func (g *Guard) Observe(remote string, pending bool) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Incompatible || g.known[remote] {
		return Ignore
	}
	if pending {
		g.state = Incompatible
		return Trip
	}
	return Reload
}

// Trip forces the guard into Incompatible and reports whether it was
// Compatible before.
func (g *Guard) Trip() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	tripped := g.state == Compatible
	g.state = Incompatible
	return tripped
}

// Reset makes the guard Compatible again, tracking version.
func (g *Guard) Reset(version string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.track(version)
	g.state = Compatible
}

// Known reports whether version is the tracked version or was tracked
// before.
func (g *Guard) Known(version string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.known[version]
}

func (g *Guard) track(version string) {
	g.version = version
	if version != "" {
		g.known[version] = true
	}
}

// State returns the current state.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

// Version returns the tracked version.
func (g *Guard) Version() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.version
}
