package users

// IdentityRepo is durable storage for the single signed-in user identity.
// Get returns errors.ErrNotFound when nothing is stored.
type IdentityRepo interface {
	Get() (*Identity, error)
	Upsert(identity *Identity) error
	Delete() error
}
