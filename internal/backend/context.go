package backend

import (
	"context"

	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

type storeKey struct{}

// WithStore binds the token store of the calling browser to ctx. Every request
// sent through the pipeline must carry one.
func WithStore(ctx context.Context, store tokenstore.Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// StoreFrom returns the store bound by WithStore, or nil.
func StoreFrom(ctx context.Context) tokenstore.Store {
	store, _ := ctx.Value(storeKey{}).(tokenstore.Store)
	return store
}
