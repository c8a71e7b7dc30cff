package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/spotwatch/spotwatch/internal/model"
)

// AWS implements PricingProvider against the EC2 API
// (DescribeRegions, DescribeInstanceTypes, DescribeSpotPriceHistory).
type AWS struct {
	cfg    aws.Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*ec2.Client // per-region, created lazily
}

// NewAWS builds an AWS provider using the default credential chain.
func NewAWS(ctx context.Context, logger *slog.Logger) (*AWS, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWS{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*ec2.Client),
	}, nil
}

// client returns a cached EC2 client scoped to region. An empty region uses
// the default from the credential chain.
func (a *AWS) client(region string) *ec2.Client {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.clients[region]; ok {
		return c
	}

	c := ec2.NewFromConfig(a.cfg, func(o *ec2.Options) {
		if region != "" {
			o.Region = region
		}
	})
	a.clients[region] = c
	return c
}

// ListRegions returns the regions enabled for this account.
func (a *AWS) ListRegions(ctx context.Context) ([]string, error) {
	out, err := a.client("").DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		regions = append(regions, aws.ToString(r.RegionName))
	}
	return regions, nil
}

// ListInstanceTypes fetches the full instance type catalog of a region.
func (a *AWS) ListInstanceTypes(ctx context.Context, region string) ([]model.InstanceTypeSpec, error) {
	start := time.Now()
	var specs []model.InstanceTypeSpec

	p := ec2.NewDescribeInstanceTypesPaginator(a.client(region), &ec2.DescribeInstanceTypesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instance types in %s: %w", region, err)
		}
		for _, info := range page.InstanceTypes {
			specs = append(specs, specFromAWS(info))
		}
	}

	a.logger.Info("fetched instance type catalog",
		"region", region,
		"count", len(specs),
		"duration", time.Since(start),
	)
	return specs, nil
}

// FetchPriceHistoryPage requests one spot price history page for a region.
func (a *AWS) FetchPriceHistoryPage(ctx context.Context, region string, start, end time.Time, token string) (*HistoryPage, error) {
	in := &ec2.DescribeSpotPriceHistoryInput{
		StartTime: aws.Time(start.UTC()),
		EndTime:   aws.Time(end.UTC()),
	}
	if token != "" {
		in.NextToken = aws.String(token)
	}

	out, err := a.client(region).DescribeSpotPriceHistory(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("describe spot price history in %s: %w", region, err)
	}

	page := &HistoryPage{
		Records:   make([]RawPriceEntry, 0, len(out.SpotPriceHistory)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, sp := range out.SpotPriceHistory {
		page.Records = append(page.Records, entryFromAWS(sp))
	}
	return page, nil
}
