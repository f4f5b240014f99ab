package compensation

import (
	"sync"

	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// DAILY CLAIM LIMITER
// =============================================================================

// DefaultClaimLimit is the number of KPI-bearing submissions a user may make
// per calendar day.
const DefaultClaimLimit = 1

// CanClaim reports whether another KPI-bearing submission is allowed given
// the number already recorded for the user and day. The count comes from
// persistence; the limiter keeps no state. A limit below 1 means
// DefaultClaimLimit.
//
// Submissions without KPI claims are never limited, so callers only ask
// when the request claims something.
func CanClaim(existing, limit int) bool {
	if limit < 1 {
		limit = DefaultClaimLimit
	}
	return existing < limit
}

// claimLocks serializes KPI-bearing calculations per user and day, so the
// count read by the limiter and the launch that raises it happen as one
// step. Entries are dropped once no caller holds or waits on them.
type claimLocks struct {
	mu   sync.Mutex
	held map[claimKey]*claimLock
}

type claimKey struct {
	userID generic.UserID
	day    string
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the caller owns the user-day and returns the release
// function.
func (l *claimLocks) lock(userID generic.UserID, day generic.TimePoint) func() {
	k := claimKey{userID: userID, day: day.String()}

	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[claimKey]*claimLock)
	}
	c, ok := l.held[k]
	if !ok {
		c = &claimLock{}
		l.held[k] = c
	}
	c.refs++
	l.mu.Unlock()

	c.mu.Lock()
	return func() {
		c.mu.Unlock()

		l.mu.Lock()
		c.refs--
		if c.refs == 0 {
			delete(l.held, k)
		}
		l.mu.Unlock()
	}
}
