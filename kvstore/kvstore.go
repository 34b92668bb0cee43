// cartservice/kvstore/kvstore.go

package kvstore

import (
	"context"
)

// IKVStore is the key-value persistence collaborator the cart store reads from and writes to.
type IKVStore interface {
	Initialize(ctx context.Context) error

	// Get returns ok == false when nothing is stored under key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	Ping(ctx context.Context) bool
	Close() error
}
