package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/spotwatch/spotwatch/internal/model"
)

// WatermarkStore provides the stored high-water mark per region.
type WatermarkStore interface {
	// MaxObservedTimestamp returns the latest stored observation timestamp
	// for a region, or nil when the region has no history.
	MaxObservedTimestamp(ctx context.Context, region string) (*time.Time, error)
}

// ResolveWatermarks computes each region's query bounds for an incremental
// run. Effective start is the later of lookbackFloor and the region's
// stored watermark, so a run never re-requests a window already covered by
// storage and a first run starts exactly at the floor. End is shared by all
// regions. All bounds are UTC.
func ResolveWatermarks(ctx context.Context, store WatermarkStore, regions []string, lookbackFloor, end time.Time) ([]model.RegionQuery, error) {
	floor := lookbackFloor.UTC()
	end = end.UTC()

	queries := make([]model.RegionQuery, 0, len(regions))
	for _, region := range regions {
		watermark, err := store.MaxObservedTimestamp(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("resolve watermark for %s: %w", region, err)
		}

		start := floor
		if watermark != nil && watermark.After(start) {
			start = watermark.UTC()
		}

		queries = append(queries, model.RegionQuery{
			Region: region,
			Start:  start,
			End:    end,
		})
	}
	return queries, nil
}
