package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteChangeEvent records one committed mutation against the store.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - resource: The collection the mutation touched ("regions", "region_bounds")
//   - path: The full resource path ("regions/42")
//   - op: The operation kind ("insert", "update", "delete")
//   - affected: Number of rows the mutation touched
//
// Example:
//
//	client.WriteChangeEvent("regions", "regions/42", "update", 1)
func (c *Client) WriteChangeEvent(resource, path, op string, affected int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"change_events",
		map[string]string{
			"resource": resource,
			"op":       op,
		},
		map[string]interface{}{
			"path":     path,
			"affected": affected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCatalogSync records the outcome of one catalog sync pass.
//
// Parameters:
//   - fetched: Entries served by the remote catalog
//   - upserted: Entries written locally
//   - skipped: Entries rejected (missing id, validation failure)
//   - took: Wall-clock duration of the pass
func (c *Client) WriteCatalogSync(fetched, upserted, skipped int, took time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"catalog_sync",
		map[string]string{},
		map[string]interface{}{
			"fetched":     fetched,
			"upserted":    upserted,
			"skipped":     skipped,
			"duration_ms": took.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
