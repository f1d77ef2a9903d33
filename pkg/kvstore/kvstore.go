package kvstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key has no stored value.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is the key-value persistence adapter backing every repository.
// Values are JSON-serialisable documents addressed by string keys. There are
// no transactions and no partial updates: callers read a whole value, modify
// it and write it back, with last-writer-wins semantics when two callers
// race on the same key.
type Store interface {
	// Get unmarshals the value stored under key into dest. It returns
	// ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set marshals value and stores it under key, replacing any previous
	// value.
	Set(ctx context.Context, key string, value interface{}) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
