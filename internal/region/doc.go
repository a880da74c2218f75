// Package region provides the entity-level API over the resource store.
//
// A Region is a named transit service area with connection metadata and a
// set of rectangular coverage boxes (Bounds). The package assembles both
// from their backing tables and exposes get/upsert/delete operations to
// external collaborators such as the HTTP API and the catalog sync job.
//
// Two layers are provided:
//
//   - Repository performs the actual reads and writes through the store's
//     resource paths, so every operation goes through the same routing,
//     projection, and notification machinery as any other caller.
//   - Registry wraps a Repository with a thread-safe in-memory cache for
//     read-mostly consumers. Returned regions are deep copies; callers can
//     modify them freely.
//
// Absent regions are not errors at the Repository level: Get returns nil.
// The Registry converts absence into ErrRegionNotFound for callers that
// want an error to branch on.
package region
