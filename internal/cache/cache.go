// Package cache provides bounded, expiring key/value stores for auxiliary
// lookups such as token metadata.
package cache

import "context"

// Cache is a bounded store with a fixed TTL per entry. Missing or expired keys
// report ok == false without an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
