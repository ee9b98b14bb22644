package filerepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/users"
)

var _ users.IdentityRepo = (*FileIdentityRepo)(nil)

// FileIdentityRepo persists the identity as JSON in <folder>/budget_tracker_user.json.
type FileIdentityRepo struct {
	path string
	mu   sync.Mutex
}

// New creates the repo, creating folder if it does not exist.
func New(folder string) (*FileIdentityRepo, error) {
	if folder == "" {
		return nil, fmt.Errorf("folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "[filerepo New] create %s: %v", folder, err)
	}
	return &FileIdentityRepo{path: filepath.Join(folder, users.StorageKey+".json")}, nil
}

// Path returns the file the identity is stored in.
func (r *FileIdentityRepo) Path() string {
	return r.path
}

func (r *FileIdentityRepo) Get() (*users.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "[filerepo Get] read: %v", err)
	}

	identity, err := users.ParseIdentity(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "[filerepo Get] decode: %v", err)
	}
	return identity, nil
}

// Upsert writes to a temp file and renames it over the old one so a crash never
// leaves a half written identity behind.
func (r *FileIdentityRepo) Upsert(identity *users.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity cannot be nil")
	}
	raw, err := identity.Marshal()
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "[filerepo Upsert] encode: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(r.path), users.StorageKey+"-*.tmp")
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "[filerepo Upsert] create temp: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(errors.ErrStorage, "[filerepo Upsert] write: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(errors.ErrStorage, "[filerepo Upsert] close: %v", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrapf(errors.ErrStorage, "[filerepo Upsert] rename: %v", err)
	}
	return nil
}

func (r *FileIdentityRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrStorage, "[filerepo Delete] remove: %v", err)
	}
	return nil
}
