package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves canned history pages per region. A region listed in
// failAt fails with failErr when the given 1-based page is requested.
type fakeSource struct {
	mu      sync.Mutex
	regions []string
	specs   []model.InstanceTypeSpec
	pages   map[string][]provider.HistoryPage
	failAt  map[string]int
	failErr error
	fetches map[string]int
}

func (f *fakeSource) ListRegions(ctx context.Context) ([]string, error) {
	return f.regions, nil
}

func (f *fakeSource) ListInstanceTypes(ctx context.Context, region string) ([]model.InstanceTypeSpec, error) {
	return f.specs, nil
}

func (f *fakeSource) FetchPriceHistoryPage(ctx context.Context, region string, start, end time.Time, token string) (*provider.HistoryPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := 0
	if token != "" {
		idx, _ = strconv.Atoi(token)
	}

	f.mu.Lock()
	f.fetches[region]++
	fail := f.failAt[region]
	f.mu.Unlock()

	if fail > 0 && idx+1 >= fail {
		return nil, f.failErr
	}

	pages := f.pages[region]
	if idx >= len(pages) {
		return &provider.HistoryPage{}, nil
	}

	page := pages[idx]
	if idx < len(pages)-1 {
		page.NextToken = strconv.Itoa(idx + 1)
	} else {
		page.NextToken = ""
	}
	return &page, nil
}

func newFakeSource(regions ...string) *fakeSource {
	return &fakeSource{
		regions: regions,
		pages:   make(map[string][]provider.HistoryPage),
		failAt:  make(map[string]int),
		fetches: make(map[string]int),
	}
}

func rawEntry(instanceType, zone, price string, ts time.Time) provider.RawPriceEntry {
	return provider.RawPriceEntry{
		InstanceType:       instanceType,
		ProductDescription: "Linux/UNIX",
		AvailabilityZone:   zone,
		SpotPrice:          price,
		Timestamp:          ts,
	}
}

func testSpecs() map[string]model.InstanceTypeSpec {
	return map[string]model.InstanceTypeSpec{
		"m5.xlarge": {Name: "m5.xlarge", PCores: 2},
		"c5.large":  {Name: "c5.large", PCores: 1},
	}
}

func testQuery(region string) model.RegionQuery {
	return model.RegionQuery{
		Region: region,
		Start:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestWorkerPaginates(t *testing.T) {
	inWindow := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	source := newFakeSource("us-east-1")
	source.pages["us-east-1"] = []provider.HistoryPage{
		{Records: []provider.RawPriceEntry{
			rawEntry("m5.xlarge", "us-east-1a", "0.068", inWindow),
			rawEntry("c5.large", "us-east-1b", "0.031", inWindow),
		}},
		{Records: []provider.RawPriceEntry{
			rawEntry("m5.xlarge", "us-east-1b", "0.067", inWindow),
		}},
		{Records: []provider.RawPriceEntry{
			rawEntry("c5.large", "us-east-1a", "0.030", inWindow),
		}},
	}

	sink := NewSink(10)
	w := &worker{query: testQuery("us-east-1"), source: source, specs: testSpecs(), sink: sink, logger: testLogger()}

	stats, err := w.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.pages != 3 {
		t.Errorf("pages = %d, want 3", stats.pages)
	}
	if stats.emitted != 4 {
		t.Errorf("emitted = %d, want 4", stats.emitted)
	}
	if source.fetches["us-east-1"] != 3 {
		t.Errorf("fetches = %d, want 3", source.fetches["us-east-1"])
	}
}

func TestWorkerSkipsDefectiveRecords(t *testing.T) {
	inWindow := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	beforeWindow := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	source := newFakeSource("us-east-1")
	source.pages["us-east-1"] = []provider.HistoryPage{
		{Records: []provider.RawPriceEntry{
			rawEntry("m5.xlarge", "us-east-1a", "0.068", inWindow),
			rawEntry("x9.unknown", "us-east-1a", "0.100", inWindow),  // not in catalog
			rawEntry("m5.xlarge", "", "0.068", inWindow),             // missing zone
			rawEntry("m5.xlarge", "us-east-1a", "", inWindow),        // missing price
			rawEntry("m5.xlarge", "us-east-1a", "bogus", inWindow),   // unparseable price
			rawEntry("m5.xlarge", "us-east-1a", "0.068", time.Time{}), // zero timestamp
			rawEntry("c5.large", "us-east-1b", "0.031", beforeWindow),
		}},
	}

	sink := NewSink(10)
	w := &worker{query: testQuery("us-east-1"), source: source, specs: testSpecs(), sink: sink, logger: testLogger()}

	stats, err := w.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.emitted != 1 {
		t.Errorf("emitted = %d, want 1", stats.emitted)
	}
	if stats.unknownType != 1 {
		t.Errorf("unknownType = %d, want 1", stats.unknownType)
	}
	if stats.malformed != 4 {
		t.Errorf("malformed = %d, want 4", stats.malformed)
	}
	if stats.outOfWindow != 1 {
		t.Errorf("outOfWindow = %d, want 1", stats.outOfWindow)
	}

	obs := <-sink.C()
	if obs.InstanceType != "m5.xlarge" || obs.Region != "us-east-1" {
		t.Errorf("unexpected observation %+v", obs)
	}
	if obs.ID == uuid.Nil {
		t.Error("observation missing id")
	}
}

func TestWorkerWrapsFetchError(t *testing.T) {
	fetchErr := errors.New("RequestLimitExceeded")

	source := newFakeSource("us-east-1")
	source.pages["us-east-1"] = []provider.HistoryPage{
		{Records: []provider.RawPriceEntry{
			rawEntry("m5.xlarge", "us-east-1a", "0.068", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)),
		}},
		{}, {},
	}
	source.failAt["us-east-1"] = 2
	source.failErr = fetchErr

	sink := NewSink(10)
	w := &worker{query: testQuery("us-east-1"), source: source, specs: testSpecs(), sink: sink, logger: testLogger()}

	stats, err := w.run(context.Background())
	var rfe *RegionFetchError
	if !errors.As(err, &rfe) {
		t.Fatalf("err = %v, want RegionFetchError", err)
	}
	if rfe.Region != "us-east-1" {
		t.Errorf("region = %q, want us-east-1", rfe.Region)
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("err does not wrap the provider error: %v", err)
	}
	if stats.emitted != 1 {
		t.Errorf("emitted before failure = %d, want 1", stats.emitted)
	}
}

func TestWorkerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := newFakeSource("us-east-1")
	sink := NewSink(1)
	w := &worker{query: testQuery("us-east-1"), source: source, specs: testSpecs(), sink: sink, logger: testLogger()}

	_, err := w.run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
