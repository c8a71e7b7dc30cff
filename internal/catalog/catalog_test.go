package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/provider"
)

type fakeSource struct {
	specs []model.InstanceTypeSpec
	err   error
}

func (f *fakeSource) ListRegions(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeSource) ListInstanceTypes(ctx context.Context, region string) ([]model.InstanceTypeSpec, error) {
	return f.specs, f.err
}

func (f *fakeSource) FetchPriceHistoryPage(ctx context.Context, region string, start, end time.Time, token string) (*provider.HistoryPage, error) {
	return nil, nil
}

type fakeStore struct {
	known    map[string]model.InstanceTypeSpec
	upserted []model.InstanceTypeSpec
}

func (f *fakeStore) InstanceTypeSpecs(ctx context.Context) (map[string]model.InstanceTypeSpec, error) {
	return f.known, nil
}

func (f *fakeStore) UpsertInstanceTypes(ctx context.Context, specs []model.InstanceTypeSpec) error {
	f.upserted = append(f.upserted, specs...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncCountsNewTypes(t *testing.T) {
	ghz := 3.1
	source := &fakeSource{specs: []model.InstanceTypeSpec{
		{Name: "m5.xlarge", PCores: 2, SustainedClockSpeedGHz: &ghz},
		{Name: "c5.large", PCores: 1, SustainedClockSpeedGHz: &ghz},
		{Name: "t3.micro", PCores: 1},
	}}
	store := &fakeStore{known: map[string]model.InstanceTypeSpec{
		"m5.xlarge": {Name: "m5.xlarge", PCores: 2},
	}}

	reg := NewRegistry(source, store, testLogger())
	result, err := reg.Sync(context.Background(), "us-east-1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if result.Total != 3 {
		t.Errorf("total = %d, want 3", result.Total)
	}
	if result.New != 2 {
		t.Errorf("new = %d, want 2", result.New)
	}
	// Known types are upserted too so spec changes propagate.
	if len(store.upserted) != 3 {
		t.Errorf("upserted %d specs, want 3", len(store.upserted))
	}
}

func TestSyncProviderError(t *testing.T) {
	listErr := errors.New("AccessDenied")
	reg := NewRegistry(&fakeSource{err: listErr}, &fakeStore{}, testLogger())

	_, err := reg.Sync(context.Background(), "us-east-1")
	if !errors.Is(err, listErr) {
		t.Fatalf("err = %v, want wrapped %v", err, listErr)
	}
}
