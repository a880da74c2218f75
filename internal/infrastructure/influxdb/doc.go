// Package influxdb provides InfluxDB connectivity for Region Core.
//
// It wraps the official influxdb-client-go v2 library with Region Core
// patterns for connection management, event writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series archival for:
//   - Change events against the region store (inserts, updates, deletes)
//   - Catalog sync outcomes (entries fetched, written, skipped)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "opentransit",
//	    Bucket: "regioncore",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Archive a change event
//	client.WriteChangeEvent("regions", "regions/42", "update", 1)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps archival off the mutation hot path entirely.
package influxdb
