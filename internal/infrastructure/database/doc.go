// Package database provides SQLite database connectivity for Region Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations (forward-only, embedded in the binary)
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - Single writer connection matches SQLite's write model
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Run migrations
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are forward-only and additive. The regions and region_bounds
// table names, column names, and the region_bounds_cleanup trigger are part
// of the durable on-disk contract: databases created by earlier releases must
// keep working, so migrations never DROP or RENAME those objects. Each
// migration file has both .up.sql and .down.sql (down exists for development
// rollback only).
package database
