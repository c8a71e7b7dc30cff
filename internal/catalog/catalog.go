// Package catalog maintains the instance type registry that ingestion
// validates observations against. The registry is fed by provider sync and
// is append-mostly: hardware specs for a type change rarely, so an upsert
// simply overwrites.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spotwatch/spotwatch/internal/model"
	"github.com/spotwatch/spotwatch/internal/provider"
)

// Store persists instance type specs.
type Store interface {
	InstanceTypeSpecs(ctx context.Context) (map[string]model.InstanceTypeSpec, error)
	UpsertInstanceTypes(ctx context.Context, specs []model.InstanceTypeSpec) error
}

// SyncResult reports one catalog sync.
type SyncResult struct {
	Total int // types seen at the provider
	New   int // types not previously in the registry
}

// Registry syncs instance type specs from a provider into a store.
type Registry struct {
	source provider.PricingProvider
	store  Store
	logger *slog.Logger
}

// NewRegistry creates a registry.
func NewRegistry(source provider.PricingProvider, store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{source: source, store: store, logger: logger}
}

// Sync fetches every instance type visible in region and upserts it into
// the store. The catalog is global: specs are identical across regions, so
// one representative region suffices.
func (r *Registry) Sync(ctx context.Context, region string) (*SyncResult, error) {
	specs, err := r.source.ListInstanceTypes(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("list instance types in %s: %w", region, err)
	}

	known, err := r.store.InstanceTypeSpecs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instance type catalog: %w", err)
	}

	result := &SyncResult{Total: len(specs)}
	for _, spec := range specs {
		if _, ok := known[spec.Name]; !ok {
			result.New++
		}
	}

	if err := r.store.UpsertInstanceTypes(ctx, specs); err != nil {
		return nil, fmt.Errorf("upsert instance types: %w", err)
	}

	r.logger.Info("catalog sync complete",
		"region", region,
		"total", result.Total,
		"new", result.New,
	)
	return result, nil
}
