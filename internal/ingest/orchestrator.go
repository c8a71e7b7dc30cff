package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/provider"
)

// ObservationHandler receives observations from the consumer loop in
// arrival order. Arrival order is FIFO across the sink; there is no global
// timestamp order across regions.
type ObservationHandler interface {
	HandleObservation(ctx context.Context, obs model.PriceObservation) error
}

// ObservationHandlerFunc is a function adapter for ObservationHandler.
type ObservationHandlerFunc func(context.Context, model.PriceObservation) error

func (f ObservationHandlerFunc) HandleObservation(ctx context.Context, obs model.PriceObservation) error {
	return f(ctx, obs)
}

// Default orchestrator settings.
const (
	DefaultMaxConcurrency = 5
	DefaultSinkCapacity   = 50
)

// OrchestratorConfig holds orchestrator settings.
type OrchestratorConfig struct {
	MaxConcurrency int // parallel region workers
	SinkCapacity   int // shared bounded buffer size
}

// DefaultOrchestratorConfig returns sensible defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxConcurrency: DefaultMaxConcurrency,
		SinkCapacity:   DefaultSinkCapacity,
	}
}

// RunStats summarizes one orchestrated fetch.
type RunStats struct {
	RegionsCompleted int
	Forwarded        int
	Pages            int
	UnknownTypeSkips int
	MalformedSkips   int
	OutOfWindowSkips int
	Discarded        int
}

func (s *RunStats) mergeWorker(w workerStats) {
	s.Pages += w.pages
	s.UnknownTypeSkips += w.unknownType
	s.MalformedSkips += w.malformed
	s.OutOfWindowSkips += w.outOfWindow
}

// Orchestrator runs a bounded pool of region workers over a shared bounded
// sink with a single consumer.
type Orchestrator struct {
	cfg    OrchestratorConfig
	source provider.PricingProvider
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig, source provider.PricingProvider, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.SinkCapacity < 1 {
		cfg.SinkCapacity = DefaultSinkCapacity
	}
	return &Orchestrator{cfg: cfg, source: source, logger: logger}
}

// regionResult is a per-region completion marker.
type regionResult struct {
	region string
	stats  workerStats
	err    error
}

// Run fetches every query with at most MaxConcurrency concurrent workers,
// forwarding each observation to handler in arrival order.
//
// Whole-run semantics are fail-fast: the first region failure cancels all
// in-flight workers, discards anything still buffered, waits for every
// worker to exit, and returns an AbortError naming the failed region.
// External cancellation takes the same drain path and returns ctx.Err().
// There is no internal retry; callers may re-run with recomputed watermarks.
func (o *Orchestrator) Run(ctx context.Context, queries []model.RegionQuery, specs map[string]model.InstanceTypeSpec, handler ObservationHandler) (RunStats, error) {
	var stats RunStats
	if len(queries) == 0 {
		return stats, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := NewSink(o.cfg.SinkCapacity)
	completions := make(chan regionResult, len(queries))
	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrency))

	start := time.Now()
	o.logger.Info("starting fetch",
		"regions", len(queries),
		"max_concurrency", o.cfg.MaxConcurrency,
		"sink_capacity", o.cfg.SinkCapacity,
	)

	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q model.RegionQuery) {
			defer wg.Done()

			if err := sem.Acquire(runCtx, 1); err != nil {
				completions <- regionResult{region: q.Region, err: err}
				return
			}
			defer sem.Release(1)

			w := &worker{query: q, source: o.source, specs: specs, sink: sink, logger: o.logger}
			ws, err := w.run(runCtx)
			completions <- regionResult{region: q.Region, stats: ws, err: err}
		}(q)
	}

	outstanding := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		outstanding[q.Region] = struct{}{}
	}

	var runErr error

consume:
	for len(outstanding) > 0 {
		select {
		case <-runCtx.Done():
			runErr = runCtx.Err()
			break consume

		case obs := <-sink.C():
			if err := handler.HandleObservation(runCtx, obs); err != nil {
				runErr = fmt.Errorf("forward observation: %w", err)
				break consume
			}
			stats.Forwarded++

		case res := <-completions:
			delete(outstanding, res.region)
			stats.mergeWorker(res.stats)

			if res.err == nil {
				stats.RegionsCompleted++
				o.logger.Info("region complete",
					"region", res.region,
					"records", res.stats.emitted,
					"pages", res.stats.pages,
					"unknown_type", res.stats.unknownType,
					"malformed", res.stats.malformed,
				)
				continue
			}
			if isCancellation(res.err) && runCtx.Err() != nil {
				// Worker observed the cancellation this loop initiated; the
				// root cause arrives through another branch. A cancellation
				// error while runCtx is alive is a provider-side timeout and
				// must abort like any other region failure.
				continue
			}

			o.logger.Error("region failed", "region", res.region, "err", res.err)
			runErr = &AbortError{Region: res.region, Cause: res.err}
			break consume
		}
	}

	if runErr == nil && runCtx.Err() != nil {
		runErr = runCtx.Err()
	}

	if runErr != nil {
		// Fail fast: stop all workers, reject further pushes, discard
		// whatever is still buffered. Run must not return before every
		// worker has acknowledged cancellation.
		cancel()
		wg.Wait()
		stats.Discarded = sink.Drain()
		o.logger.Warn("fetch aborted",
			"err", runErr,
			"forwarded", stats.Forwarded,
			"discarded", stats.Discarded,
			"duration", time.Since(start),
		)
		return stats, runErr
	}

	// All completion markers consumed; the sink may still hold records
	// pushed just before the markers.
	wg.Wait()
	for {
		select {
		case obs := <-sink.C():
			if err := handler.HandleObservation(ctx, obs); err != nil {
				stats.Discarded = sink.Drain()
				return stats, fmt.Errorf("forward observation: %w", err)
			}
			stats.Forwarded++
		default:
			o.logger.Info("fetch complete",
				"regions", stats.RegionsCompleted,
				"records", stats.Forwarded,
				"pages", stats.Pages,
				"duration", time.Since(start),
			)
			return stats, nil
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
