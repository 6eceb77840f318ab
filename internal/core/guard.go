// AngelaMos | 2026
// guard.go

package core

import (
	"fmt"
	"sync"
)

// IdentityGuard marks a holder's mutating operation as in progress for
// its full duration. A second acquisition for the same holder, whether
// a nested call re-entered from a transfer callback or an overlapping
// request, is rejected with ErrReentrantCall instead of queued, so a
// single logical mutation always completes before the next begins.
type IdentityGuard struct {
	inFlight sync.Map
}

func NewIdentityGuard() *IdentityGuard {
	return &IdentityGuard{}
}

// Acquire claims the guard for holderID and returns the release
// function. Release must run on every exit path, including failure.
func (g *IdentityGuard) Acquire(holderID string) (func(), error) {
	if _, loaded := g.inFlight.LoadOrStore(holderID, struct{}{}); loaded {
		return nil, fmt.Errorf(
			"operation in progress for holder %s: %w",
			holderID,
			ErrReentrantCall,
		)
	}

	return func() { g.inFlight.Delete(holderID) }, nil
}
