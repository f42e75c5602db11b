// Package store holds the description store: the durable mapping from
// emoji id (content hash) to its vision-model description and emotion
// tags. The approved directory on disk remains the source of truth; the
// store is a derived index that the registrar can always rebuild.
package store

import (
	"context"
	"errors"

	"github.com/your-org/emomatch/internal/models"
)

// ErrNotFound reports a missing record id.
var ErrNotFound = errors.New("store: record not found")

// Store is the description store contract. The registrar is the only
// writer; the matcher is a read-only consumer apart from usage
// accounting. Implementations must commit each record atomically so a
// concurrent reader never observes a half-written entry.
type Store interface {
	// List returns all records ordered by id ascending.
	List(ctx context.Context) ([]models.EmojiRecord, error)
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.EmojiRecord, error)
	// Put commits a record. Re-putting an existing id replaces it atomically.
	Put(ctx context.Context, rec *models.EmojiRecord) error
	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Touch bumps usage accounting on the record.
	Touch(ctx context.Context, id string) error
	// Count returns the number of records.
	Count(ctx context.Context) (int, error)
}
