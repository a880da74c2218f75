// Package store implements the URI-addressed storage layer for Region Core.
//
// Clients address data by logical resource path rather than table name:
//
//	regions            all regions
//	regions/42         one region
//	region_bounds      all bounding boxes
//	region_bounds/7    one bounding box
//
// ParseResource turns a path into a tagged Resource descriptor; the Store
// executes queries and mutations against the descriptor's table under a
// fixed, store-enforced column projection. Reads return positional rows in
// projection order, so callers decode by position, never by name.
//
// Every mutation runs in a single transaction. On success the store publishes
// a change notification for the mutated resource path on the bus; on failure
// the transaction is rolled back and no partial writes are observable.
//
// A "limit" query parameter on the path caps result counts:
//
//	regions?limit=2
//
// # Thread Safety
//
// Store is safe for concurrent use. SQLite serialises writers; readers run
// concurrently under WAL mode.
package store
