package credential

import errs "github.com/jrsteele09/storyforge/internal/errors"

// ErrNotFound is returned by Repo.Load when nothing is persisted.
var ErrNotFound = errs.ErrNotFound

// Repo persists the single credential this process owns.
// Implementations must return (nil, ErrNotFound) from Load when empty, and
// treat Delete of an empty repo as success.
type Repo interface {
	Load() (*Credential, error)
	Save(credential *Credential) error
	Delete() error
}
