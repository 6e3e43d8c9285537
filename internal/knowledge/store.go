// Package knowledge owns the canonical entity store consumed by the
// linking engine. Two backends are provided: a YAML file store for small
// snapshots and a sqlite store that also persists linking outcomes.
package knowledge

import (
	"context"

	"github.com/josephgoksu/LinkWing/types"
)

// EntityStore abstracts the knowledge store. ListAll feeds index rebuilds;
// GetByID materializes resolved entities on final results.
type EntityStore interface {
	ListAll(ctx context.Context) ([]KnownEntity, error)
	GetByID(ctx context.Context, id string) (*KnownEntity, error)
	Put(ctx context.Context, e KnownEntity) (KnownEntity, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// ErrNotFound is re-exported for store consumers.
var ErrNotFound = types.ErrNotFound
