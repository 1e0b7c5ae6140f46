// Package store provides the device-scoped key-value stores used by the
// chat client: persisted correlation identifiers (consumer, provider,
// enrollment) and ephemeral per-view guard keys.
package store

import "context"

// Well-known device store keys for correlation identifiers.
const (
	KeyConsumerID   = "proxie_consumer_id"
	KeyProviderID   = "proxie_provider_id"
	KeyEnrollmentID = "proxie_enrollment_id"
)

// KV is a minimal key-value capability. The fingerprint guard and session
// bootstrap only depend on this interface; production code backs it with
// sqlite, tests with the in-memory driver.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}
