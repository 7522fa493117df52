package credentialrepofake

import (
	"sync"

	"github.com/jrsteele09/storyforge/credential"
)

var _ credential.Repo = (*FakeCredentialRepo)(nil)

type FakeCredentialRepo struct {
	stored *credential.Credential
	saves  int
	lock   sync.RWMutex

	// SaveErr, when set, is returned from every Save.
	SaveErr error
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{}
}

// NewFakeCredentialRepoWith returns a repo that already holds c.
func NewFakeCredentialRepoWith(c *credential.Credential) *FakeCredentialRepo {
	return &FakeCredentialRepo{stored: c}
}

func (r *FakeCredentialRepo) Load() (*credential.Credential, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.stored == nil {
		return nil, credential.ErrNotFound
	}
	return r.stored, nil
}

func (r *FakeCredentialRepo) Save(c *credential.Credential) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.stored = c
	r.saves++
	return nil
}

func (r *FakeCredentialRepo) Delete() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stored = nil
	return nil
}

// Saves is the number of successful Save calls.
func (r *FakeCredentialRepo) Saves() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.saves
}

// Stored returns what is currently persisted.
func (r *FakeCredentialRepo) Stored() *credential.Credential {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.stored
}
