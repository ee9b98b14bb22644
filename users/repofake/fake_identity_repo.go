package fakeidentityrepo

import (
	"sync"

	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/users"
)

var _ users.IdentityRepo = (*FakeIdentityRepo)(nil)

// FakeIdentityRepo keeps the identity in memory. Fail* fields make the
// corresponding operation return errors.ErrStorage.
type FakeIdentityRepo struct {
	identity *users.Identity
	lock     sync.RWMutex

	FailGet    bool
	FailUpsert bool
	FailDelete bool
}

func NewFakeIdentityRepo() *FakeIdentityRepo {
	return &FakeIdentityRepo{}
}

func (ir *FakeIdentityRepo) Get() (*users.Identity, error) {
	ir.lock.RLock()
	defer ir.lock.RUnlock()

	if ir.FailGet {
		return nil, errors.ErrStorage
	}
	if ir.identity == nil {
		return nil, errors.ErrNotFound
	}
	identity := *ir.identity
	return &identity, nil
}

func (ir *FakeIdentityRepo) Upsert(identity *users.Identity) error {
	ir.lock.Lock()
	defer ir.lock.Unlock()

	if ir.FailUpsert {
		return errors.ErrStorage
	}
	stored := *identity
	ir.identity = &stored
	return nil
}

func (ir *FakeIdentityRepo) Delete() error {
	ir.lock.Lock()
	defer ir.lock.Unlock()

	if ir.FailDelete {
		return errors.ErrStorage
	}
	ir.identity = nil
	return nil
}

// Stored returns the identity without going through the failure switches.
func (ir *FakeIdentityRepo) Stored() *users.Identity {
	ir.lock.RLock()
	defer ir.lock.RUnlock()
	return ir.identity
}
