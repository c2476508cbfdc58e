package store

import (
	"context"
	"errors"

	"github.com/Karannkx/Kxshare/internal/models"
)

var (
	ErrNotFound = errors.New("share not found")
	// ErrDuplicateID is returned by Save when a record with the same id
	// already exists. Ids are generated internally, so a collision is a
	// generation fault, not a user-facing case.
	ErrDuplicateID = errors.New("share id already exists")
)

// Store persists share records. Records are immutable after creation:
// there is no update operation. Implementations must be safe for
// concurrent use. Expiry is enforced by the lifecycle manager, not here.
type Store interface {
	Save(ctx context.Context, share *models.Share) error
	Get(ctx context.Context, id string) (*models.Share, error)
	// Delete removes a record if present; deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error
	Close() error
}
