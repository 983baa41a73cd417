package account

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/fileutil"
)

// ErrAccountNotFound is returned when an operation references an unknown
// account id.
var ErrAccountNotFound = errors.New("account not found")

// DuplicateAccountError is returned by Add when an account with the same
// email address is already registered.
type DuplicateAccountError struct {
	EmailAddress string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account already exists: %s", e.EmailAddress)
}

// Registry owns the durable account list. Every mutation rewrites the whole
// accounts file atomically and notifies subscribers. All methods are safe
// for concurrent use; mutations are serialized by an internal lock.
type Registry struct {
	mu       sync.Mutex
	path     string
	creds    *CredentialStore
	accounts []Account
	version  uint64
	subs     map[int]chan struct{}
	nextSub  int
}

// LoadRegistry reads the accounts file at path and returns a Registry over
// it. A missing file means an empty registry. A malformed file is logged
// and treated as empty rather than failing startup.
func LoadRegistry(path string, creds *CredentialStore) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create accounts dir: %w", err)
	}

	r := &Registry{
		path:  path,
		creds: creds,
		subs:  map[int]chan struct{}{},
	}

	var accounts []Account
	if err := fileutil.ReadJSON(path, &accounts); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("accounts file is unreadable, starting with an empty registry",
				"path", path, "error", err)
		}
		accounts = nil
	}
	sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].Order < accounts[j].Order })
	for i := range accounts {
		accounts[i].Order = i
	}
	r.accounts = accounts
	return r, nil
}

// Accounts returns a snapshot of the registered accounts in display order.
func (r *Registry) Accounts() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// Version returns a counter that increases on every successful mutation.
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Subscribe returns a channel that receives a signal after every mutation,
// plus a cancel function. The channel is buffered; a slow consumer sees
// coalesced notifications, never a blocked registry.
func (r *Registry) Subscribe() (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan struct{}, 1)
	r.subs[id] = ch
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
	return ch, cancel
}

// notifyLocked signals all subscribers. Callers must hold r.mu.
func (r *Registry) notifyLocked() {
	r.version++
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Add registers a new account and stores its credentials. The credentials
// are persisted before the list entry so a crash in between never leaves a
// listed account without credentials. Returns a DuplicateAccountError if
// the email address is already registered.
func (r *Registry) Add(acct Account, creds Credentials) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.EmailAddress == acct.EmailAddress {
			return Account{}, &DuplicateAccountError{EmailAddress: acct.EmailAddress}
		}
	}

	acct.Order = len(r.accounts)
	if err := r.creds.Save(acct.ID, creds); err != nil {
		return Account{}, err
	}

	r.accounts = append(r.accounts, acct)
	if err := r.persistLocked(); err != nil {
		// Undo the in-memory append; the orphaned credential entry is
		// harmless and will be overwritten on retry.
		r.accounts = r.accounts[:len(r.accounts)-1]
		return Account{}, err
	}
	r.notifyLocked()
	return acct, nil
}

// Remove deletes an account and renumbers the remaining ones densely.
// Credential deletion is best-effort: a failing secret store must not keep
// a stale entry in the list.
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return ErrAccountNotFound
	}

	if err := r.creds.Delete(id); err != nil {
		slog.Warn("could not delete account credentials", "account_id", id, "error", err)
	}

	r.accounts = append(r.accounts[:idx], r.accounts[idx+1:]...)
	for i := range r.accounts {
		r.accounts[i].Order = i
	}
	if err := r.persistLocked(); err != nil {
		return err
	}
	r.notifyLocked()
	return nil
}

// MarkUsed sets the account's lastUsedAt to now and persists.
func (r *Registry) MarkUsed(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return ErrAccountNotFound
	}
	r.accounts[idx].LastUsedAt = nowUTC()
	if err := r.persistLocked(); err != nil {
		return err
	}
	r.notifyLocked()
	return nil
}

// Reorder assigns display order by position of each id in ids. Every
// registered account must appear exactly once.
func (r *Registry) Reorder(ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(ids) != len(r.accounts) {
		return fmt.Errorf("%w: reorder needs all %d account ids, got %d",
			ErrAccountNotFound, len(r.accounts), len(ids))
	}

	byID := make(map[uuid.UUID]Account, len(r.accounts))
	for _, acct := range r.accounts {
		byID[acct.ID] = acct
	}

	reordered := make([]Account, 0, len(ids))
	for i, id := range ids {
		acct, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		delete(byID, id)
		acct.Order = i
		reordered = append(reordered, acct)
	}

	r.accounts = reordered
	if err := r.persistLocked(); err != nil {
		return err
	}
	r.notifyLocked()
	return nil
}

// Credentials loads the stored credentials for an account.
func (r *Registry) Credentials(id uuid.UUID) (Credentials, error) {
	r.mu.Lock()
	idx := r.indexLocked(id)
	r.mu.Unlock()
	if idx < 0 {
		return Credentials{}, ErrAccountNotFound
	}
	return r.creds.Read(id)
}

// ByID returns the account with the given id.
func (r *Registry) ByID(id uuid.UUID) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return Account{}, ErrAccountNotFound
	}
	return r.accounts[idx], nil
}

// ByEmail returns the account with the given email address.
func (r *Registry) ByEmail(email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.accounts {
		if acct.EmailAddress == email {
			return acct, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (r *Registry) indexLocked(id uuid.UUID) int {
	for i, acct := range r.accounts {
		if acct.ID == id {
			return i
		}
	}
	return -1
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func (r *Registry) persistLocked() error {
	if err := fileutil.WriteJSONAtomic(r.path, r.accounts, 0o600); err != nil {
		return fmt.Errorf("persist accounts: %w", err)
	}
	return nil
}
