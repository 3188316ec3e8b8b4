package db

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// KV is the raw storage contract the indexed store is built on: point
// reads, point writes, deletes. List indices are maintained by callers via
// read-modify-write; the per-chain sequential execution model makes that
// safe without a compare-and-swap primitive.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
