// Package reconnect decides how long a chat session waits before dialing
// again after a connection attempt fails or an open connection closes.
package reconnect

import "time"

// Policy maps a 1-based attempt count to the delay before the next dial.
type Policy func(attempt int) time.Duration

// Fallback is used from the tenth attempt on, and for attempts below 1.
const Fallback = 5000 * time.Millisecond

// Retry fast while the outage looks like a hiccup, then settle on Fallback.
var steps = [...]time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	150 * time.Millisecond,
	200 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	2000 * time.Millisecond,
}

// Delay is the default Policy. It never gives up and adds no jitter.
func Delay(attempt int) time.Duration {
	if attempt < 1 || attempt > len(steps) {
		return Fallback
	}
	return steps[attempt-1]
}

// Default is the policy sessions use when none is configured.
var Default Policy = Delay
