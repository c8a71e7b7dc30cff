package provider

import (
	"context"
	"time"

	"github.com/spotwatch/spotwatch/internal/model"
)

// RawPriceEntry is one price-history record as delivered by the provider,
// before validation and normalization.
type RawPriceEntry struct {
	InstanceType       string
	ProductDescription string
	AvailabilityZone   string
	SpotPrice          string    // decimal string, USD per hour
	Timestamp          time.Time // UTC
}

// HistoryPage is one page of price history. An empty NextToken means the
// final page.
type HistoryPage struct {
	Records   []RawPriceEntry
	NextToken string
}

// PricingProvider is the narrow interface through which the ingestion core
// talks to a cloud pricing source.
type PricingProvider interface {
	// ListRegions returns the regions enabled for the current account.
	ListRegions(ctx context.Context) ([]string, error)

	// ListInstanceTypes returns the full instance type catalog of a region,
	// paginating internally.
	ListInstanceTypes(ctx context.Context, region string) ([]model.InstanceTypeSpec, error)

	// FetchPriceHistoryPage requests one page of spot price history for a
	// region between start and end. Pass an empty token for the first page.
	FetchPriceHistoryPage(ctx context.Context, region string, start, end time.Time, token string) (*HistoryPage, error)
}
