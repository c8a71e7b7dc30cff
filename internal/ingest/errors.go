package ingest

import "fmt"

// RegionFetchError reports an unrecoverable provider failure for one region.
// Workers never retry; the orchestrator turns this into a whole-run abort.
type RegionFetchError struct {
	Region string
	Err    error
}

func (e *RegionFetchError) Error() string {
	return fmt.Sprintf("fetch region %s: %v", e.Region, e.Err)
}

func (e *RegionFetchError) Unwrap() error { return e.Err }

// AbortError is returned when a run is aborted because one region failed.
// Records consumed before the abort stay committed; nothing is rolled back.
type AbortError struct {
	Region string
	Cause  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted, region %s failed: %v", e.Region, e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }
