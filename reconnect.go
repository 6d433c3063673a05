package rews

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for ReconnectConfig, applied field by field when a field is
// zero or out of bounds.
const (
	DefaultInitialInterval     = 500 * time.Millisecond
	DefaultMultiplier          = 1.5
	DefaultRandomizationFactor = 0.5
	DefaultMaxInterval         = 60 * time.Second
)

// ReconnectConfig holds the parameters of the exponential backoff reconnect
// system.
//
// Each retry delay is sampled uniformly from
// [interval*(1-RandomizationFactor), interval*(1+RandomizationFactor)],
// after which the interval grows by Multiplier until it reaches
// MaxInterval, where it stays until the next successful connection resets
// it. There is no retry cutoff: a client keeps retrying until closed.
type ReconnectConfig struct {
	// InitialInterval is the interval used for the first retry after a
	// drop (and again after every successful connection).
	InitialInterval time.Duration

	// Multiplier scales the interval after each retry.
	Multiplier float64

	// RandomizationFactor widens each delay into a random range around
	// the current interval. 0.5 means 50% below to 50% above.
	RandomizationFactor float64

	// MaxInterval caps the interval.
	MaxInterval time.Duration
}

// DefaultReconnectConfig returns the default backoff parameters.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialInterval:     DefaultInitialInterval,
		Multiplier:          DefaultMultiplier,
		RandomizationFactor: DefaultRandomizationFactor,
		MaxInterval:         DefaultMaxInterval,
	}
}

// sanitized clamps degenerate parameter values to usable bounds so that
// backoff calculation has no failure modes.
func (c ReconnectConfig) sanitized() ReconnectConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.Multiplier < 1 {
		c.Multiplier = DefaultMultiplier
	}
	if c.RandomizationFactor < 0 {
		c.RandomizationFactor = 0
	} else if c.RandomizationFactor > 1 {
		c.RandomizationFactor = 1
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	return c
}

// reconnectController tracks whether a reconnect sequence is in progress
// and computes successive retry delays. The zero-value controller is not
// usable; build one with newReconnectController. All methods must be
// called with the owning core's lock held.
type reconnectController struct {
	active  bool
	backoff *backoff.ExponentialBackOff
}

func newReconnectController(cfg ReconnectConfig) *reconnectController {
	cfg = cfg.sanitized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.RandomizationFactor
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0 // retry forever
	b.Reset()

	return &reconnectController{backoff: b}
}

// nextBackoff marks the controller active, advances its state, and returns
// the delay to wait before the next connection attempt.
func (r *reconnectController) nextBackoff() time.Duration {
	r.active = true
	d := r.backoff.NextBackOff()
	if d == backoff.Stop {
		// Unreachable with MaxElapsedTime of zero.
		d = 0
	}
	return d
}

// reset clears the active flag and restores the interval to its initial
// value. Called once per successful (re)connection; idempotent.
func (r *reconnectController) reset() {
	r.active = false
	r.backoff.Reset()
}

// isActive reports whether a reconnect sequence is currently in progress.
func (r *reconnectController) isActive() bool {
	return r.active
}
