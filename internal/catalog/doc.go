// Package catalog syncs region definitions from a remote regions catalog
// into the local store.
//
// The catalog serves a JSON document listing every known region with its
// endpoints, capability flags, and coverage boxes. The loader fetches and
// decodes that document; the Syncer upserts each entry through the region
// repository (forced ids, so catalog identifiers stay stable across
// installs) and replaces its bounds set.
//
// The wire format is tolerant: capability flags may arrive as JSON booleans
// or as the strings "true"/"false", both of which appear in deployed
// catalogs.
//
// Sync runs periodically via Run and on demand via Sync. Transient fetch
// failures are retried with backoff here; the store itself never retries.
package catalog
