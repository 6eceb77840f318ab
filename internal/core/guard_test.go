// AngelaMos | 2026
// guard_test.go

package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestIdentityGuardAcquireRelease(t *testing.T) {
	g := NewIdentityGuard()

	release, err := g.Acquire("holder-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := g.Acquire("holder-1"); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("second Acquire() = %v, want ErrReentrantCall", err)
	}

	release()

	release2, err := g.Acquire("holder-1")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release2()
}

func TestIdentityGuardIndependentHolders(t *testing.T) {
	g := NewIdentityGuard()

	release1, err := g.Acquire("holder-1")
	if err != nil {
		t.Fatalf("Acquire(holder-1) error = %v", err)
	}
	defer release1()

	release2, err := g.Acquire("holder-2")
	if err != nil {
		t.Fatalf("Acquire(holder-2) error = %v", err)
	}
	defer release2()
}

func TestIdentityGuardConcurrent(t *testing.T) {
	g := NewIdentityGuard()

	const goroutines = 50

	var wg sync.WaitGroup
	var won atomic.Int64

	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			release, err := g.Acquire("holder-1")
			if err != nil {
				return
			}
			won.Add(1)
			release()
		}()
	}
	wg.Wait()

	if won.Load() == 0 {
		t.Fatal("no goroutine acquired the guard")
	}

	// Guard must be free once everything released.
	release, err := g.Acquire("holder-1")
	if err != nil {
		t.Fatalf("Acquire() after concurrent use error = %v", err)
	}
	release()
}
