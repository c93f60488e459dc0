package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Sleeper blocks the caller for d. Drivers take one so tests can record
// mandatory waits instead of serving them.
type Sleeper func(d time.Duration)

// Or returns s, or time.Sleep when s is nil.
func (s Sleeper) Or() Sleeper {
	if s == nil {
		return time.Sleep
	}
	return s
}

// Us converts a microsecond count from configuration to a Duration.
func Us(us uint32) time.Duration { return time.Duration(us) * time.Microsecond }

// Ms converts a millisecond count from configuration to a Duration.
func Ms(ms uint32) time.Duration { return time.Duration(ms) * time.Millisecond }
