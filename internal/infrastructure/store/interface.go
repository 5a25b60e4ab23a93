package store

import "context"

// Slot keys used by the shop. Each value is replaced whole on write.
const (
	CartKey     = "cart"
	SettingsKey = "kafka_settings"
)

// KeyValueStore defines durable string-keyed storage
type KeyValueStore interface {
	// Get returns the value stored under key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)

	// Set replaces the value stored under key
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
