// Package ingest implements the price ingestion pipeline.
//
// Components:
//   - Watermark resolution: per-region query bounds from stored history
//   - Region workers: sequential page fetch, validate, normalize, emit
//   - Orchestrator: bounded worker pool over a shared bounded sink with a
//     single consumer, fail-fast abort and drain on any region failure
//   - Service: one ingestion run end to end, batching appends to storage
//     and feeding the current-price projection
//
// Per-record defects (unknown instance type, malformed entry) are absorbed
// and counted; per-region defects abort the whole run.
package ingest
