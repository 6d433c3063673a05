package rews

import "time"

// Scheduler fires a callback after a delay. It is fire-and-forget: no
// cancellation handle is required, since scheduled retries perform their
// own liveness checks when they run. The default implementation is backed
// by time.AfterFunc; tests inject a manual-fire fake for deterministic
// control of virtual time.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// timerScheduler is the production Scheduler.
type timerScheduler struct{}

func (timerScheduler) Schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}
