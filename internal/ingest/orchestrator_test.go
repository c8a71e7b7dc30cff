package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/provider"
)

// collector is an ObservationHandler that records everything it receives.
type collector struct {
	mu        sync.Mutex
	got       []model.PriceObservation
	fail      error // returned after failAfter observations
	n         int
	failAfter int
}

func (c *collector) HandleObservation(ctx context.Context, obs model.PriceObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	if c.fail != nil && c.n > c.failAfter {
		return c.fail
	}
	c.got = append(c.got, obs)
	return nil
}

func historyPage(region string, count int, ts time.Time) provider.HistoryPage {
	var page provider.HistoryPage
	for i := 0; i < count; i++ {
		page.Records = append(page.Records, rawEntry("m5.xlarge", region+"a", fmt.Sprintf("0.0%d", 60+i), ts))
	}
	return page
}

func TestOrchestratorForwardsAllRegions(t *testing.T) {
	ts := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	source := newFakeSource("us-east-1", "eu-west-1", "ap-south-1")
	source.pages["us-east-1"] = []provider.HistoryPage{historyPage("us-east-1", 3, ts), historyPage("us-east-1", 2, ts)}
	source.pages["eu-west-1"] = []provider.HistoryPage{historyPage("eu-west-1", 4, ts)}
	source.pages["ap-south-1"] = []provider.HistoryPage{historyPage("ap-south-1", 1, ts)}

	queries := []model.RegionQuery{testQuery("us-east-1"), testQuery("eu-west-1"), testQuery("ap-south-1")}

	orch := NewOrchestrator(OrchestratorConfig{MaxConcurrency: 2, SinkCapacity: 3}, source, testLogger())
	sink := &collector{}

	stats, err := orch.Run(context.Background(), queries, testSpecs(), sink)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.RegionsCompleted != 3 {
		t.Errorf("regions completed = %d, want 3", stats.RegionsCompleted)
	}
	if stats.Forwarded != 10 {
		t.Errorf("forwarded = %d, want 10", stats.Forwarded)
	}
	if len(sink.got) != 10 {
		t.Errorf("handler received %d, want 10", len(sink.got))
	}
	if stats.Pages != 4 {
		t.Errorf("pages = %d, want 4", stats.Pages)
	}
	if stats.Discarded != 0 {
		t.Errorf("discarded = %d, want 0", stats.Discarded)
	}

	byRegion := make(map[string]int)
	for _, obs := range sink.got {
		byRegion[obs.Region]++
	}
	if byRegion["us-east-1"] != 5 || byRegion["eu-west-1"] != 4 || byRegion["ap-south-1"] != 1 {
		t.Errorf("per-region counts = %v", byRegion)
	}
}

func TestOrchestratorAbortsOnRegionFailure(t *testing.T) {
	ts := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	throttle := errors.New("RequestLimitExceeded")

	source := newFakeSource("us-east-1", "eu-west-1")
	source.pages["us-east-1"] = []provider.HistoryPage{
		historyPage("us-east-1", 2, ts), historyPage("us-east-1", 2, ts), historyPage("us-east-1", 2, ts),
	}
	source.pages["eu-west-1"] = []provider.HistoryPage{
		historyPage("eu-west-1", 2, ts), historyPage("eu-west-1", 2, ts),
	}
	source.failAt["eu-west-1"] = 2
	source.failErr = throttle

	queries := []model.RegionQuery{testQuery("us-east-1"), testQuery("eu-west-1")}

	orch := NewOrchestrator(OrchestratorConfig{MaxConcurrency: 2, SinkCapacity: 2}, source, testLogger())
	sink := &collector{}

	stats, err := orch.Run(context.Background(), queries, testSpecs(), sink)
	if err == nil {
		t.Fatal("expected abort error")
	}

	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if abort.Region != "eu-west-1" {
		t.Errorf("aborted region = %q, want eu-west-1", abort.Region)
	}
	if !errors.Is(err, throttle) {
		t.Errorf("err does not wrap the provider error: %v", err)
	}

	// Nothing buffered at abort time may leak to the handler afterwards.
	if stats.Forwarded != len(sink.got) {
		t.Errorf("forwarded = %d but handler received %d", stats.Forwarded, len(sink.got))
	}
	if stats.RegionsCompleted > 1 {
		t.Errorf("regions completed = %d, want at most 1", stats.RegionsCompleted)
	}
}

func TestOrchestratorAbortsOnProviderDeadline(t *testing.T) {
	ts := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	// An SDK-internal per-request timeout unwraps to DeadlineExceeded even
	// though the run context is still alive. It must abort the run, not
	// pass for a cancellation echo.
	deadlineErr := fmt.Errorf("request timed out: %w", context.DeadlineExceeded)

	source := newFakeSource("us-east-1", "eu-west-1")
	source.pages["us-east-1"] = []provider.HistoryPage{historyPage("us-east-1", 2, ts)}
	source.pages["eu-west-1"] = []provider.HistoryPage{historyPage("eu-west-1", 2, ts)}
	source.failAt["eu-west-1"] = 1
	source.failErr = deadlineErr

	queries := []model.RegionQuery{testQuery("us-east-1"), testQuery("eu-west-1")}

	orch := NewOrchestrator(OrchestratorConfig{MaxConcurrency: 2, SinkCapacity: 4}, source, testLogger())
	_, err := orch.Run(context.Background(), queries, testSpecs(), &collector{})
	if err == nil {
		t.Fatal("run reported success with a failed region")
	}

	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if abort.Region != "eu-west-1" {
		t.Errorf("aborted region = %q, want eu-west-1", abort.Region)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err does not wrap the provider timeout: %v", err)
	}
}

func TestOrchestratorExternalCancellation(t *testing.T) {
	ts := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	source := newFakeSource("us-east-1")
	pages := make([]provider.HistoryPage, 50)
	for i := range pages {
		pages[i] = historyPage("us-east-1", 2, ts)
	}
	source.pages["us-east-1"] = pages

	ctx, cancel := context.WithCancel(context.Background())
	handler := ObservationHandlerFunc(func(ctx context.Context, obs model.PriceObservation) error {
		cancel()
		return nil
	})

	orch := NewOrchestrator(DefaultOrchestratorConfig(), source, testLogger())
	_, err := orch.Run(ctx, []model.RegionQuery{testQuery("us-east-1")}, testSpecs(), handler)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOrchestratorHandlerError(t *testing.T) {
	ts := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	sinkErr := errors.New("disk full")

	source := newFakeSource("us-east-1")
	source.pages["us-east-1"] = []provider.HistoryPage{historyPage("us-east-1", 5, ts)}

	orch := NewOrchestrator(DefaultOrchestratorConfig(), source, testLogger())
	handler := &collector{fail: sinkErr, failAfter: 2}

	stats, err := orch.Run(context.Background(), []model.RegionQuery{testQuery("us-east-1")}, testSpecs(), handler)
	if !errors.Is(err, sinkErr) {
		t.Fatalf("err = %v, want wrapped %v", err, sinkErr)
	}
	if stats.Forwarded != 2 {
		t.Errorf("forwarded = %d, want 2", stats.Forwarded)
	}
}

func TestOrchestratorNoQueries(t *testing.T) {
	orch := NewOrchestrator(DefaultOrchestratorConfig(), newFakeSource(), testLogger())
	stats, err := orch.Run(context.Background(), nil, testSpecs(), &collector{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Forwarded != 0 || stats.RegionsCompleted != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
