package credential

import (
	"sync"
	"sync/atomic"
	"time"

	errs "github.com/jrsteele09/storyforge/internal/errors"
)

// Store is the process-wide holder of the current credential. Reads are
// lock free; writes are serialised and persisted through the Repo.
type Store struct {
	repo    Repo
	mirror  *CookieMirror
	nowFunc func() time.Time

	current atomic.Pointer[Credential]
	writeMu sync.Mutex
}

type StoreOption func(*Store)

// WithCookieMirror mirrors every write into a cookie jar for the backend origin.
func WithCookieMirror(m *CookieMirror) StoreOption {
	return func(s *Store) {
		s.mirror = m
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{repo: repo}
	for _, opt := range options {
		opt(s)
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s
}

// Restore loads the persisted credential into memory. An empty repo is not an
// error: it returns (nil, nil).
func (s *Store) Restore() (*Credential, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.repo.Load()
	if errs.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrapf(err, "Store.Restore Load")
	}
	s.current.Store(c)
	if s.mirror != nil {
		s.mirror.set(c)
	}
	return c, nil
}

// Get returns the current credential or nil.
func (s *Store) Get() *Credential {
	return s.current.Load()
}

// Set replaces the current credential. The in-memory value is swapped before
// persistence, so a failed Save still leaves the process with the new value.
func (s *Store) Set(c *Credential) error {
	if c == nil {
		return s.Clear()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.current.Store(c)
	if s.mirror != nil {
		s.mirror.set(c)
	}
	if err := s.repo.Save(c); err != nil {
		return errs.Wrapf(err, "Store.Set Save")
	}
	return nil
}

// Clear removes the credential from memory, the cookie mirror and the repo.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.current.Store(nil)
	if s.mirror != nil {
		s.mirror.clear()
	}
	if err := s.repo.Delete(); err != nil && !errs.Is(err, ErrNotFound) {
		return errs.Wrapf(err, "Store.Clear Delete")
	}
	return nil
}

// SecondsUntilExpiry reports the remaining access token lifetime. ok is false
// when there is no credential.
func (s *Store) SecondsUntilExpiry() (seconds int64, ok bool) {
	c := s.current.Load()
	if c == nil {
		return 0, false
	}
	return c.SecondsUntilExpiry(s.nowFunc()), true
}
