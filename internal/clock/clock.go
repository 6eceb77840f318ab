// AngelaMos | 2026
// clock.go

// Package clock supplies the engine's notion of time. The core never
// reads the wall clock directly so tests can simulate elapsed time.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func System() Clock {
	return systemClock{}
}
