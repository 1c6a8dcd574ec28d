package credential

import (
	"context"
)

// Store defines the interface for credential persistence operations.
// Credentials are addressed by name, which is unique.
type Store interface {
	// Create creates a new credential in the store.
	Create(ctx context.Context, cred *Credential) error

	// GetByName retrieves a credential by its name.
	GetByName(ctx context.Context, name string) (*Credential, error)

	// List retrieves all credentials ordered by name. Secret blobs are
	// included; callers expose only the metadata.
	List(ctx context.Context) ([]*Credential, error)

	// Update updates a credential with the given setters.
	Update(ctx context.Context, name string, setters ...UpdateSetter) error

	// Delete deletes a credential by its name.
	Delete(ctx context.Context, name string) error
}

// UpdateSetter is a function that updates a credential field.
type UpdateSetter func(*Credential) error
