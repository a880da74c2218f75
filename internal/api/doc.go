// Package api implements the HTTP REST API and WebSocket server for Region Core.
//
// This package provides:
//   - REST endpoints for region and bounds CRUD, preferences, and catalog sync
//   - WebSocket hub for real-time change event broadcasts
//   - JWT write guard with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body size limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between transit clients and the region registry, the
// resource store, and the change event bus. Reads go through the registry's
// cache; writes go through the store, which publishes a change event after
// each commit. The server relays those events to WebSocket clients subscribed
// to the affected resource channel ("regions" or "region_bounds").
//
// # Security
//
// Read endpoints are open: the data is public transit metadata. Mutating
// endpoints require a JWT bearer token when security.jwt.secret is set and
// are unguarded otherwise, matching a local single-user deployment.
// WebSocket connections use single-use tickets to keep tokens out of URLs.
//
// # Graceful Degradation
//
// The server operates without a catalog syncer or event bus. Without a
// syncer POST /catalog/sync reports 503; without a bus WebSocket clients
// simply receive no change events.
package api
