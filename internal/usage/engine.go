package usage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
)

const (
	defaultTTL          = 60 * time.Second
	defaultPollInterval = 45 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Fetcher is the usage client as the engine sees it.
type Fetcher interface {
	FetchUsage(ctx context.Context, accessToken string) (*Snapshot, error)
}

// AccountSource is the registry surface the engine depends on: a snapshot
// read, credential lookup, and a change subscription.
type AccountSource interface {
	Accounts() []account.Account
	Credentials(id uuid.UUID) (account.Credentials, error)
	Subscribe() (<-chan struct{}, func())
}

// ActiveReader reports which account the external tool currently acts as.
type ActiveReader interface {
	ReadOAuthAccount() (claude.OAuthAccount, error)
}

// Options configures an Engine. Source and Fetcher are required; Active is
// optional.
type Options struct {
	Source       AccountSource
	Fetcher      Fetcher
	Active       ActiveReader
	TTL          time.Duration
	PollInterval time.Duration
	FetchTimeout time.Duration
}

// Engine owns the transient per-account usage cache and the poll loop.
// Cache mutations are serialized by an internal lock; fetches run as
// independent goroutines that rejoin the lock only to commit their result.
// At most one fetch is in flight per account at any time.
type Engine struct {
	source       AccountSource
	fetcher      Fetcher
	active       ActiveReader
	ttl          time.Duration
	pollInterval time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu         sync.Mutex
	entries    map[uuid.UUID]*cacheEntry
	activeUUID string

	pollMu     sync.Mutex
	pollCancel context.CancelFunc
	pollDone   chan struct{}

	unsubscribe func()
	quit        chan struct{}
	watchDone   chan struct{}
}

type cacheEntry struct {
	acct     account.Account
	state    LoadingState
	inflight bool
	// gen increases for every started fetch so a fetch that committed late
	// can never overwrite a later fetch's result.
	gen uint64
}

// NewEngine builds an engine, seeds the cache from the account source, and
// starts watching it for changes. Callers must Close the engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		source:       opts.Source,
		fetcher:      opts.Fetcher,
		active:       opts.Active,
		ttl:          opts.TTL,
		pollInterval: opts.PollInterval,
		fetchTimeout: opts.FetchTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		entries:      map[uuid.UUID]*cacheEntry{},
		quit:         make(chan struct{}),
		watchDone:    make(chan struct{}),
	}
	if e.ttl <= 0 {
		e.ttl = defaultTTL
	}
	if e.pollInterval <= 0 {
		e.pollInterval = defaultPollInterval
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = defaultFetchTimeout
	}

	e.Resync()
	e.ReloadActiveAccount()

	ch, unsubscribe := e.source.Subscribe()
	e.unsubscribe = unsubscribe
	go func() {
		defer close(e.watchDone)
		for {
			select {
			case <-e.quit:
				return
			case <-ch:
				e.Resync()
			}
		}
	}()

	return e
}

// Close stops polling and the account watcher. In-flight fetches are left
// to drain; their results are discarded once their entries are gone.
func (e *Engine) Close() {
	e.StopPolling()
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	close(e.quit)
	<-e.watchDone
}

// Resync reconciles the cache set with the account source: entries for
// removed accounts are dropped, new accounts start Idle, and existing
// entries keep their cached data.
func (e *Engine) Resync() {
	accounts := e.source.Accounts()

	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(accounts))
	for _, acct := range accounts {
		seen[acct.ID] = struct{}{}
		if entry, ok := e.entries[acct.ID]; ok {
			entry.acct = acct
			continue
		}
		e.entries[acct.ID] = &cacheEntry{acct: acct, state: Idle()}
	}
	for id := range e.entries {
		if _, ok := seen[id]; !ok {
			delete(e.entries, id)
		}
	}
}

// Usages returns the cached view, ordered by account display order.
func (e *Engine) Usages() []AccountUsage {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AccountUsage, 0, len(e.entries))
	for _, entry := range e.entries {
		out = append(out, AccountUsage{Account: entry.acct, State: entry.state})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Order < out[j].Account.Order })
	return out
}

// ActiveAccountUUID returns the external tool's active account uuid, as of
// the last reload. Empty when unknown.
func (e *Engine) ActiveAccountUUID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeUUID
}

// ActiveUsage returns the cache entry matching the active account uuid.
func (e *Engine) ActiveUsage() (AccountUsage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeUUID == "" {
		return AccountUsage{}, false
	}
	for _, entry := range e.entries {
		if entry.acct.AccountUUID == e.activeUUID {
			return AccountUsage{Account: entry.acct, State: entry.state}, true
		}
	}
	return AccountUsage{}, false
}

// ReloadActiveAccount re-reads the active account identity from the
// external configuration. Called after a switch commits.
func (e *Engine) ReloadActiveAccount() {
	if e.active == nil {
		return
	}
	activeUUID := ""
	acct, err := e.active.ReadOAuthAccount()
	if err != nil {
		slog.Debug("active account is unavailable", "error", err)
	} else {
		activeUUID = acct.AccountUUID
	}

	e.mu.Lock()
	e.activeUUID = activeUUID
	e.mu.Unlock()
}

// RefreshAll fetches usage for every account whose cache is absent or
// stale. Fetches for distinct accounts run concurrently; an account that
// already has a fetch in flight is skipped. Blocks until the fetches it
// started have committed.
func (e *Engine) RefreshAll(ctx context.Context) {
	now := e.now()

	e.mu.Lock()
	var started []*startedFetch
	for _, entry := range e.entries {
		if entry.inflight || entry.state.IsCacheValid(e.ttl, now) {
			continue
		}
		started = append(started, e.beginFetchLocked(entry))
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, f := range started {
		wg.Add(1)
		go func(f *startedFetch) {
			defer wg.Done()
			e.runFetch(ctx, f)
		}(f)
	}
	wg.Wait()
}

// RefreshOne unconditionally fetches usage for a single account, bypassing
// the TTL. If a fetch for that account is already in flight, the running
// fetch wins and this call returns without starting another.
func (e *Engine) RefreshOne(ctx context.Context, id uuid.UUID) {
	e.mu.Lock()
	entry, ok := e.entries[id]
	if !ok || entry.inflight {
		e.mu.Unlock()
		return
	}
	f := e.beginFetchLocked(entry)
	e.mu.Unlock()

	e.runFetch(ctx, f)
}

type startedFetch struct {
	id  uuid.UUID
	gen uint64
}

// beginFetchLocked marks an entry Loading and claims the in-flight slot.
// Callers must hold e.mu.
func (e *Engine) beginFetchLocked(entry *cacheEntry) *startedFetch {
	entry.inflight = true
	entry.gen++
	entry.state = Loading()
	return &startedFetch{id: entry.acct.ID, gen: entry.gen}
}

// runFetch performs one account's fetch and commits the result. The fetch
// carries its own timeout so one hung account cannot block others.
func (e *Engine) runFetch(ctx context.Context, f *startedFetch) {
	state := e.fetchState(ctx, f.id)

	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[f.id]
	if !ok || entry.gen != f.gen {
		// The account was removed, or a newer fetch owns the entry.
		return
	}
	entry.state = state
	entry.inflight = false
}

func (e *Engine) fetchState(ctx context.Context, id uuid.UUID) LoadingState {
	creds, err := e.source.Credentials(id)
	if err != nil {
		return Errored(&UsageError{Kind: ErrorUnexpected, Detail: err.Error()})
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	snapshot, err := e.fetcher.FetchUsage(fetchCtx, creds.AccessToken())
	if err != nil {
		return Errored(classifyFetchError(err))
	}
	return Loaded(snapshot, e.now())
}

// classifyFetchError maps the usage client's error taxonomy onto the cache
// error kinds.
func classifyFetchError(err error) *UsageError {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return &UsageError{Kind: ErrorInvalidToken}
	case errors.Is(err, ErrRateLimited):
		return &UsageError{Kind: ErrorRateLimited}
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return &UsageError{Kind: ErrorNetwork, Detail: transport.Err.Error()}
	}
	return &UsageError{Kind: ErrorUnexpected, Detail: err.Error()}
}

// StartPolling begins a recurring RefreshAll on the poll interval. If a
// loop is already running it is stopped first, so there is never more than
// one.
func (e *Engine) StartPolling() {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	e.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.pollCancel = cancel
	e.pollDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// The refresh runs on a background context: stopping the
				// loop must not cancel fetches already in flight.
				e.RefreshAll(context.Background())
			}
		}
	}()
}

// StopPolling cancels the poll loop and waits for it to exit. Fetches
// already in flight drain on their own.
func (e *Engine) StopPolling() {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	e.stopPollingLocked()
}

func (e *Engine) stopPollingLocked() {
	if e.pollCancel == nil {
		return
	}
	e.pollCancel()
	<-e.pollDone
	e.pollCancel = nil
	e.pollDone = nil
}

// IsPolling reports whether the poll loop is running.
func (e *Engine) IsPolling() bool {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	return e.pollCancel != nil
}
