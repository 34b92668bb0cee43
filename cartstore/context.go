// cartservice/cartstore/context.go

package cartstore

import "context"

type storeKey struct{}

// NewContext returns a copy of ctx that provisions store to downstream consumers.
func NewContext(ctx context.Context, store *CartStore) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the store provisioned by NewContext.
func FromContext(ctx context.Context) (*CartStore, error) {
	store, ok := ctx.Value(storeKey{}).(*CartStore)
	if !ok || store == nil {
		return nil, &NotInitializedError{Caller: "cartstore.FromContext"}
	}
	return store, nil
}

// MustFromContext is FromContext that panics with *NotInitializedError when no
// store was provisioned.
func MustFromContext(ctx context.Context) *CartStore {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
