package users

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StorageKey is the durable storage key the identity is kept under.
const StorageKey = "budget_tracker_user"

// Identity is the lightweight record of the signed-in user. It is persisted
// independently of the access token so a returning user can be recognised after
// the token is gone.
type Identity struct {
	ID    int64  `json:"id"`    // Server-side user ID
	Email string `json:"email"` // User's email address
	Name  string `json:"name"`  // Display name
}

// ParseIdentity decodes an identity from its JSON form.
func ParseIdentity(raw []byte) (*Identity, error) {
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("[users ParseIdentity] %w", err)
	}
	return &identity, nil
}

// Marshal encodes the identity as JSON.
func (i *Identity) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// DisplayName returns the name, falling back to the local part of the email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Name != "" {
		return i.Name
	}
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}
