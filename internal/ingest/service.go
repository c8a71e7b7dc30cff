package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/projection"
	"github.com/spotwatch/spotwatch/internal/provider"
)

// Storage is the persistence boundary consumed by ingestion runs.
type Storage interface {
	WatermarkStore

	// InstanceTypeSpecs returns the known instance type catalog keyed by name.
	InstanceTypeSpecs(ctx context.Context) (map[string]model.InstanceTypeSpec, error)

	// AppendObservations bulk-appends one batch of history rows.
	AppendObservations(ctx context.Context, batch []model.PriceObservation) error

	// UpsertCurrentIfNewer updates the current-price row for the
	// observation's key iff the observation is strictly newer. Must be
	// atomic per key. Returns true when the row changed.
	UpsertCurrentIfNewer(ctx context.Context, obs model.PriceObservation) (bool, error)
}

// ServiceConfig holds ingestion run settings.
type ServiceConfig struct {
	LookbackDays    int // floor for how far back a run may reach
	EndOffsetDays   int // days before now to stop fetching, 0 = now
	MaxConcurrency  int
	SinkCapacity    int
	AppendBatchSize int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		LookbackDays:    30,
		EndOffsetDays:   0,
		MaxConcurrency:  DefaultMaxConcurrency,
		SinkCapacity:    DefaultSinkCapacity,
		AppendBatchSize: 500,
	}
}

// RunOptions override per-run settings. Zero values fall back to the
// service configuration; a nil Regions list means every provider region.
// EndOffsetDays is a pointer because zero ("fetch up to now") is a valid
// override of a nonzero configured offset.
type RunOptions struct {
	Regions        []string
	LookbackDays   int
	EndOffsetDays  *int
	MaxConcurrency int
}

// Result reports one completed ingestion run.
type Result struct {
	RecordsStored      int
	CurrentRowsUpdated int
	RegionsCompleted   int
	UnknownTypeSkips   int
	MalformedSkips     int
	Duration           time.Duration
}

// Service runs ingestion end to end: watermark resolution, orchestrated
// fetch, batched history appends, and the current-price projection.
type Service struct {
	cfg     ServiceConfig
	source  provider.PricingProvider
	storage Storage
	logger  *slog.Logger
}

// NewService creates an ingestion service.
func NewService(cfg ServiceConfig, source provider.PricingProvider, storage Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, source: source, storage: storage, logger: logger}
}

// Run executes one ingestion run. It either fully succeeds or returns the
// first unrecoverable error; batches appended before a failure stay
// committed (no rollback), but no partial success is reported.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	start := time.Now()

	lookbackDays := opts.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.LookbackDays
	}
	endOffsetDays := s.cfg.EndOffsetDays
	if opts.EndOffsetDays != nil {
		endOffsetDays = *opts.EndOffsetDays
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = s.cfg.MaxConcurrency
	}

	now := time.Now().UTC()
	floor := now.AddDate(0, 0, -lookbackDays)
	end := now.AddDate(0, 0, -endOffsetDays)

	regions := opts.Regions
	if len(regions) == 0 {
		var err error
		regions, err = s.source.ListRegions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		s.logger.Info("no regions specified, using all provider regions", "count", len(regions))
	}

	specs, err := s.storage.InstanceTypeSpecs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instance type catalog: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("instance type catalog is empty, run catalog sync first")
	}

	queries, err := ResolveWatermarks(ctx, s.storage, regions, floor, end)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting ingestion run",
		"regions", len(queries),
		"lookback_days", lookbackDays,
		"window_end", end,
		"known_types", len(specs),
	)

	// The in-run projection table filters duplicate and out-of-order
	// observations before they reach the conditional upsert; the upsert
	// itself stays conditional, so correctness never depends on the filter.
	table := projection.NewTable()

	result := &Result{}
	batch := make([]model.PriceObservation, 0, s.cfg.AppendBatchSize)

	flush := func(ctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.storage.AppendObservations(ctx, batch); err != nil {
			return fmt.Errorf("append observations: %w", err)
		}
		result.RecordsStored += len(batch)
		batch = batch[:0]
		return nil
	}

	handler := ObservationHandlerFunc(func(ctx context.Context, obs model.PriceObservation) error {
		batch = append(batch, obs)
		if len(batch) >= s.cfg.AppendBatchSize {
			if err := flush(ctx); err != nil {
				return err
			}
		}

		if table.Apply(obs) {
			updated, err := s.storage.UpsertCurrentIfNewer(ctx, obs)
			if err != nil {
				return fmt.Errorf("upsert current price: %w", err)
			}
			if updated {
				result.CurrentRowsUpdated++
			}
		}
		return nil
	})

	orch := NewOrchestrator(OrchestratorConfig{
		MaxConcurrency: maxConcurrency,
		SinkCapacity:   s.cfg.SinkCapacity,
	}, s.source, s.logger)

	stats, err := orch.Run(ctx, queries, specs, handler)
	if err != nil {
		return nil, err
	}

	if err := flush(ctx); err != nil {
		return nil, err
	}

	result.RegionsCompleted = stats.RegionsCompleted
	result.UnknownTypeSkips = stats.UnknownTypeSkips
	result.MalformedSkips = stats.MalformedSkips
	result.Duration = time.Since(start)

	s.logger.Info("ingestion run complete",
		"records_stored", result.RecordsStored,
		"current_rows_updated", result.CurrentRowsUpdated,
		"regions", result.RegionsCompleted,
		"unknown_type_skips", result.UnknownTypeSkips,
		"malformed_skips", result.MalformedSkips,
		"duration", result.Duration,
	)
	return result, nil
}
