// Package kv provides string-keyed, string-valued local stores used to
// persist board state between sessions.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded is returned when a write would exceed the store's capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a local key-value store. Get reports ok=false for absent keys;
// Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
