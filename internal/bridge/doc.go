// Package bridge fans change notifications out of the process.
//
// The in-process bus delivers one event per committed mutation. The bridges
// here consume those events and forward them to external systems:
//
//   - MQTTBridge publishes each event as JSON to
//     regioncore/changed/{resource_path} so remote consumers can react
//     without polling.
//   - InfluxBridge archives each event as a time-series point for
//     after-the-fact analysis of write traffic.
//
// Both bridges inherit the bus's fire-and-forget contract: a slow broker or
// archiver drops events, it never blocks a transaction. Each bridge runs one
// goroutine and stops when its bus subscription is closed or Stop is called.
package bridge
