package kitchenclient

import "time"

// Backoff yields reconnect delays: Base, 2*Base, 4*Base ... capped at Max.
// After MaxAttempts delays it returns Pause once and starts over.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
	Pause       time.Duration

	attempt int
}

// DefaultBackoff matches the kitchen screens: 1s doubling up to 30s, ten tries,
// then a one minute pause.
func DefaultBackoff() *Backoff {
	return &Backoff{
		Base:        time.Second,
		Max:         30 * time.Second,
		MaxAttempts: 10,
		Pause:       time.Minute,
	}
}

// Next returns the delay before the next connection attempt.
func (b *Backoff) Next() time.Duration {
	if b.MaxAttempts > 0 && b.attempt >= b.MaxAttempts {
		b.attempt = 0
		return b.Pause
	}

	d := b.Base
	for i := 0; i < b.attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	b.attempt++
	return d
}

// Reset is called after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt is the number of delays handed out since the last reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}
