package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/normalize"
	"github.com/spotwatch/spotwatch/internal/provider"
)

// worker fetches one region's paginated price history and pushes
// observations into the shared sink.
type worker struct {
	query  model.RegionQuery
	source provider.PricingProvider
	specs  map[string]model.InstanceTypeSpec
	sink   *Sink
	logger *slog.Logger
}

// workerStats counts per-record outcomes for one region.
type workerStats struct {
	pages       int
	emitted     int
	unknownType int
	malformed   int
	outOfWindow int
}

func (a *workerStats) add(b workerStats) {
	a.pages += b.pages
	a.emitted += b.emitted
	a.unknownType += b.unknownType
	a.malformed += b.malformed
	a.outOfWindow += b.outOfWindow
}

// run pages through the region's history until the provider stops returning
// a continuation token. Provider errors are wrapped as RegionFetchError;
// cancellation surfaces as ctx.Err().
func (w *worker) run(ctx context.Context) (workerStats, error) {
	var stats workerStats
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := w.source.FetchPriceHistoryPage(ctx, w.query.Region, w.query.Start, w.query.End, token)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			return stats, &RegionFetchError{Region: w.query.Region, Err: err}
		}
		stats.pages++

		w.logger.Debug("got price history page",
			"region", w.query.Region,
			"records", len(page.Records),
			"page", stats.pages,
		)

		for _, raw := range page.Records {
			obs, ok := w.observe(raw, &stats)
			if !ok {
				continue
			}
			if err := w.sink.Push(ctx, obs); err != nil {
				return stats, err
			}
			stats.emitted++
		}

		if page.NextToken == "" {
			return stats, nil
		}
		token = page.NextToken
	}
}

// observe validates and normalizes one raw entry. Per-record defects are
// counted and skipped, never escalated.
func (w *worker) observe(raw provider.RawPriceEntry, stats *workerStats) (model.PriceObservation, bool) {
	if raw.InstanceType == "" || raw.AvailabilityZone == "" || raw.SpotPrice == "" || raw.Timestamp.IsZero() {
		stats.malformed++
		return model.PriceObservation{}, false
	}

	spec, known := w.specs[raw.InstanceType]
	if !known {
		stats.unknownType++
		return model.PriceObservation{}, false
	}

	// Provider-side time filtering is not trusted.
	ts := raw.Timestamp.UTC()
	if ts.Before(w.query.Start) || ts.After(w.query.End) {
		stats.outOfWindow++
		return model.PriceObservation{}, false
	}

	price, err := decimal.NewFromString(raw.SpotPrice)
	if err != nil {
		w.logger.Warn("unparseable spot price",
			"region", w.query.Region,
			"instance_type", raw.InstanceType,
			"spot_price", raw.SpotPrice,
		)
		stats.malformed++
		return model.PriceObservation{}, false
	}

	femtoP, femtoV := normalize.Metrics(price, spec)

	return model.PriceObservation{
		ID:                    uuid.New(),
		Timestamp:             ts,
		InstanceType:          raw.InstanceType,
		ProductDescription:    raw.ProductDescription,
		Region:                w.query.Region,
		AvailabilityZone:      raw.AvailabilityZone,
		PriceUSDHourly:        price,
		FemtoUSDPerPCoreCycle: femtoP,
		FemtoUSDPerVCoreCycle: femtoV,
	}, true
}
