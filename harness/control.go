package harness

import "time"

// Sleep enqueues a SleepCmd on actor's control-time channel, callable from
// any thread (§6). While the window is open the actor either defers or
// drops incoming requests depending on drop.
func Sleep(actor *Endpoint, duration time.Duration, drop bool) error {
	return actor.PutSleep(SleepCmd{Duration: duration, Drop: drop})
}

// Filter installs a method filter: requests tagged with tag are answered
// immediately with a fixed failure message instead of being dispatched
// (§6).
func Filter(actor *Endpoint, tag MethodTag) error {
	return actor.PutFilter(FilterCmd{MethodTag: tag})
}

// ClearFilter removes any active filter (§6).
func ClearFilter(actor *Endpoint) error {
	return actor.PutFilter(FilterCmd{})
}
