// Package usage fetches and caches per-account Claude usage data.
package usage

import (
	"fmt"
	"math"
	"time"

	"github.com/joaoalves/claude-use-bar/internal/account"
)

// Period is one rate-limit window of the usage response.
type Period struct {
	Utilization float64   `json:"utilization"`
	ResetsAt    time.Time `json:"resets_at"`
}

// Percent returns the window's utilization rounded to 0-100.
func (p Period) Percent() int {
	return int(math.Round(p.Utilization * 100))
}

// Snapshot is the usage data returned for one account. The seven-day window
// is not present on all plans.
type Snapshot struct {
	FiveHour Period  `json:"five_hour"`
	SevenDay *Period `json:"seven_day,omitempty"`
}

// UtilizationPercent returns the five-hour utilization as 0-100.
func (s *Snapshot) UtilizationPercent() int {
	return s.FiveHour.Percent()
}

// IsNearLimit reports five-hour utilization at or above 80%.
func (s *Snapshot) IsNearLimit() bool {
	return s.FiveHour.Utilization >= 0.8
}

// IsLimitExceeded reports five-hour utilization at or above 100%.
func (s *Snapshot) IsLimitExceeded() bool {
	return s.FiveHour.Utilization >= 1.0
}

// ErrorKind classifies a failed usage fetch.
type ErrorKind int

const (
	ErrorUnexpected ErrorKind = iota
	ErrorInvalidToken
	ErrorRateLimited
	ErrorNetwork
)

// UsageError is the per-account error captured into the cache when a fetch
// fails.
type UsageError struct {
	Kind   ErrorKind
	Detail string
}

func (e *UsageError) Error() string {
	switch e.Kind {
	case ErrorInvalidToken:
		return "invalid or expired token"
	case ErrorRateLimited:
		return "rate limited, retrying on the next poll"
	case ErrorNetwork:
		return fmt.Sprintf("network error: %s", e.Detail)
	default:
		return fmt.Sprintf("unexpected error: %s", e.Detail)
	}
}

// Phase is the lifecycle position of a cache entry.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseErrored
)

// LoadingState is a cache entry's state. The zero value is Idle. Loaded
// always carries a snapshot and load time, Errored always carries an error;
// other combinations cannot be constructed.
type LoadingState struct {
	phase    Phase
	snapshot *Snapshot
	loadedAt time.Time
	err      *UsageError
}

// Idle is the state of an entry that has never been fetched.
func Idle() LoadingState {
	return LoadingState{phase: PhaseIdle}
}

// Loading is the state of an entry with a fetch in flight.
func Loading() LoadingState {
	return LoadingState{phase: PhaseLoading}
}

// Loaded is the state of an entry holding a snapshot fetched at loadedAt.
func Loaded(snapshot *Snapshot, loadedAt time.Time) LoadingState {
	return LoadingState{phase: PhaseLoaded, snapshot: snapshot, loadedAt: loadedAt}
}

// Errored is the state of an entry whose last fetch failed.
func Errored(err *UsageError) LoadingState {
	return LoadingState{phase: PhaseErrored, err: err}
}

// Phase returns the entry's lifecycle position.
func (s LoadingState) Phase() Phase {
	return s.phase
}

// IsLoading reports whether a fetch is in flight for this entry.
func (s LoadingState) IsLoading() bool {
	return s.phase == PhaseLoading
}

// Snapshot returns the loaded usage data and its load time. ok is false
// unless the entry is Loaded.
func (s LoadingState) Snapshot() (snapshot *Snapshot, loadedAt time.Time, ok bool) {
	if s.phase != PhaseLoaded {
		return nil, time.Time{}, false
	}
	return s.snapshot, s.loadedAt, true
}

// Err returns the captured fetch error. ok is false unless the entry is
// Errored.
func (s LoadingState) Err() (err *UsageError, ok bool) {
	if s.phase != PhaseErrored {
		return nil, false
	}
	return s.err, true
}

// IsCacheValid reports whether the entry is Loaded and its snapshot is
// younger than ttl.
func (s LoadingState) IsCacheValid(ttl time.Duration, now time.Time) bool {
	if s.phase != PhaseLoaded {
		return false
	}
	return now.Sub(s.loadedAt) < ttl
}

// AccountUsage pairs an account with its cached usage state.
type AccountUsage struct {
	Account account.Account
	State   LoadingState
}
