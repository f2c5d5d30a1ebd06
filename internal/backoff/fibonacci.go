// Package backoff implements the Fibonacci retry back-off used to
// space out reconnection attempts against the Infrastructure Printer
// service, matching the recurrence used by the reference proxy tool.
package backoff

import "time"

// Fibonacci produces a bounded Fibonacci sequence of delays in
// seconds: 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, then wraps back to 29 and
// continues the 60-second-ceiling cycle, never emitting a delay longer
// than 60 seconds. The zero value is not ready for use; call Reset
// (or construct with New) before the first call to Next.
type Fibonacci struct {
	previous byte
	current  byte
}

// New returns a Fibonacci generator in its initial state, where the
// first call to Next returns one second.
func New() *Fibonacci {
	f := &Fibonacci{}
	f.Reset()
	return f
}

// Reset returns the generator to its initial state. Call it whenever a
// connection attempt succeeds, so the next failure starts the back-off
// from one second again.
func (f *Fibonacci) Reset() {
	f.previous = 0
	f.current = 1
}

// Value returns the current delay, in seconds, without advancing the
// sequence.
func (f *Fibonacci) Value() byte {
	return f.current
}

// Next advances the sequence and returns the new delay as a
// time.Duration.
func (f *Fibonacci) Next() time.Duration {
	sum := int(f.previous) + int(f.current)
	next := byte(((sum-1)%60)+1)
	f.previous = f.current
	f.current = next
	return time.Duration(f.current) * time.Second
}
