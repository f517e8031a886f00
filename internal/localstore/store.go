// Package localstore persists the client's durable records (the cached
// capability and the replica document) as opaque byte values under fixed keys.
package localstore

import (
	"context"
	"errors"
)

// Record keys.
const (
	KeySession = "session"
	KeyReplica = "replica"
)

// ErrNotFound is returned by Get when the record has never been written or was deleted.
var ErrNotFound = errors.New("record not found")

// Store holds whole records. Put replaces the previous value atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
