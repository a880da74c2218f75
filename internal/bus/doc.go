// Package bus provides the in-process change-notification bus for Region Core.
//
// The store publishes an event after every committed mutation, keyed by the
// logical resource path that changed ("regions", "region_bounds"). Observers
// subscribe with a buffered channel and an optional path filter.
//
// Delivery is fire-and-forget: Publish never blocks and never returns an
// error, so a slow or dead observer cannot stall or fail the transaction
// that triggered the notification. Events for a full subscriber buffer are
// dropped (and counted), not queued.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package bus
