// Package policy holds the pure decision rules applied to an incoming clip:
// whether its claimed timestamp is fresh enough, and whether it may replace
// the owner's current clip.
package policy

import "time"

// DefaultSizeThreshold is the payload size above which the longer expiry
// window applies.
const DefaultSizeThreshold = 10_000_000

// Config holds the freshness tunables. It is copied into Temporal at
// construction and never changed afterwards.
type Config struct {
	SizeThreshold int64
	ExpiryMin     time.Duration
	ExpiryMax     time.Duration
}

// DefaultConfig returns the production freshness settings.
func DefaultConfig() Config {
	return Config{
		SizeThreshold: DefaultSizeThreshold,
		ExpiryMin:     5 * time.Minute,
		ExpiryMax:     30 * time.Minute,
	}
}

// Verdict is the outcome of a freshness check.
type Verdict int

const (
	Fresh Verdict = iota
	Late
	TimeTravel
)

func (v Verdict) String() string {
	switch v {
	case Fresh:
		return "fresh"
	case Late:
		return "late"
	case TimeTravel:
		return "time_travel"
	}
	return "unknown"
}

// Temporal decides whether a claimed timestamp is acceptable for a payload of
// a given size. The current time is always supplied by the caller.
type Temporal struct {
	cfg Config
}

// NewTemporal creates a Temporal policy from cfg.
func NewTemporal(cfg Config) Temporal {
	return Temporal{cfg: cfg}
}

// Window returns the maximum allowed age for a payload of size units.
// Only payloads strictly larger than the threshold get the long window.
func (p Temporal) Window(size int64) time.Duration {
	if size > p.cfg.SizeThreshold {
		return p.cfg.ExpiryMax
	}
	return p.cfg.ExpiryMin
}

// Check classifies a claimed timestamp (ms since epoch) against nowMs.
func (p Temporal) Check(size, claimedMs, nowMs int64) Verdict {
	if claimedMs < nowMs-p.Window(size).Milliseconds() {
		return Late
	}
	if claimedMs > nowMs {
		return TimeTravel
	}
	return Fresh
}

// IsFresh reports whether Check yields Fresh.
func (p Temporal) IsFresh(size, claimedMs, nowMs int64) bool {
	return p.Check(size, claimedMs, nowMs) == Fresh
}
