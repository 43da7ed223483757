// Package metrics aggregates per-service call statistics for callcheck.
//
// A [Collector] is handed to the executor as its recorder. Every resolved call
// is counted by outcome kind and status code, and its latency goes into an HDR
// histogram:
//
//	collector := metrics.NewCollector()
//	exec := executor.New(client, executor.WithRecorder(collector))
//	...
//	snapshot := collector.Snapshot()
//
// Transport failures are additionally bucketed by [FailureReason] so a report
// can tell timeouts from refused connections.
//
// The Collector is safe for concurrent use.
package metrics
