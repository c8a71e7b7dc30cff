package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spotwatch/spotwatch/internal/model"
)

// Store implements catalog, history, and projection persistence over one
// connection pool.
type Store struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a store.
func NewStore(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// MaxObservedTimestamp returns the latest history timestamp for a region,
// or nil when the region has no rows.
func (s *Store) MaxObservedTimestamp(ctx context.Context, region string) (*time.Time, error) {
	var ts *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT max(ts) FROM spot_price_history WHERE region = $1`,
		region,
	).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("query max timestamp for %s: %w", region, err)
	}
	if ts == nil {
		return nil, nil
	}
	utc := ts.UTC()
	return &utc, nil
}

// InstanceTypeSpecs loads the full hardware catalog keyed by type name.
func (s *Store) InstanceTypeSpecs(ctx context.Context) (map[string]model.InstanceTypeSpec, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, p_cores, v_cores, sustained_clock_speed_ghz FROM instance_types`)
	if err != nil {
		return nil, fmt.Errorf("query instance types: %w", err)
	}
	defer rows.Close()

	specs := make(map[string]model.InstanceTypeSpec)
	for rows.Next() {
		var spec model.InstanceTypeSpec
		if err := rows.Scan(&spec.Name, &spec.PCores, &spec.VCores, &spec.SustainedClockSpeedGHz); err != nil {
			return nil, fmt.Errorf("scan instance type: %w", err)
		}
		specs[spec.Name] = spec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance types: %w", err)
	}
	return specs, nil
}

// UpsertInstanceTypes writes catalog rows, overwriting specs for known
// types so hardware corrections propagate.
func (s *Store) UpsertInstanceTypes(ctx context.Context, specs []model.InstanceTypeSpec) error {
	if len(specs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, spec := range specs {
		batch.Queue(`
			INSERT INTO instance_types (name, p_cores, v_cores, sustained_clock_speed_ghz)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET
				p_cores = EXCLUDED.p_cores,
				v_cores = EXCLUDED.v_cores,
				sustained_clock_speed_ghz = EXCLUDED.sustained_clock_speed_ghz
		`, spec.Name, spec.PCores, spec.VCores, spec.SustainedClockSpeedGHz)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range specs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert instance type: %w", err)
		}
	}
	return nil
}

// AppendObservations bulk-appends history rows using pgx.Batch. Re-sent
// rows conflict on the surrogate id and are ignored, so a retried batch is
// idempotent.
func (s *Store) AppendObservations(ctx context.Context, observations []model.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	start := time.Now()
	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(`
			INSERT INTO spot_price_history
				(id, ts, instance_type, product_description, region, availability_zone,
				 price_usd_hourly, femto_usd_per_p_core_cycle, femto_usd_per_v_core_cycle)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
			ON CONFLICT (id, ts) DO NOTHING
		`,
			obs.ID, obs.Timestamp, obs.InstanceType, obs.ProductDescription,
			obs.Region, obs.AvailabilityZone, obs.PriceUSDHourly.String(),
			obs.FemtoUSDPerPCoreCycle, obs.FemtoUSDPerVCoreCycle)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range observations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	s.logger.Debug("appended observations",
		"count", len(observations),
		"duration", time.Since(start),
	)
	return nil
}

// UpsertCurrentIfNewer replaces the current-price row for the
// observation's key only when the observation is strictly newer. The
// comparison runs inside the upsert, so concurrent writers cannot regress
// a row. Returns true when the row was inserted or replaced.
func (s *Store) UpsertCurrentIfNewer(ctx context.Context, obs model.PriceObservation) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO current_spot_instance_prices
			(instance_type, product_description, availability_zone, region, ts,
			 price_usd_hourly, femto_usd_per_p_core_cycle, femto_usd_per_v_core_cycle)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (instance_type, product_description, availability_zone) DO UPDATE SET
			region = EXCLUDED.region,
			ts = EXCLUDED.ts,
			price_usd_hourly = EXCLUDED.price_usd_hourly,
			femto_usd_per_p_core_cycle = EXCLUDED.femto_usd_per_p_core_cycle,
			femto_usd_per_v_core_cycle = EXCLUDED.femto_usd_per_v_core_cycle
		WHERE current_spot_instance_prices.ts < EXCLUDED.ts
	`,
		obs.InstanceType, obs.ProductDescription, obs.AvailabilityZone,
		obs.Region, obs.Timestamp, obs.PriceUSDHourly.String(),
		obs.FemtoUSDPerPCoreCycle, obs.FemtoUSDPerVCoreCycle)
	if err != nil {
		return false, fmt.Errorf("upsert current price: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// CurrentPriceFilter narrows and orders a current-price query.
type CurrentPriceFilter struct {
	InstanceTypes []string
	Regions       []string
	SortBy        string // one of the keys accepted by ValidSortColumn
	Descending    bool
	Limit         int
	Offset        int
}

// CurrentPriceRow is a projection row joined with its hardware spec. Spec
// fields are nil when the type has left the catalog.
type CurrentPriceRow struct {
	model.CurrentPrice
	PCores                 *int
	VCores                 *int
	SustainedClockSpeedGHz *float64
}

var sortColumns = map[string]string{
	"instance_type":              "c.instance_type",
	"product_description":        "c.product_description",
	"availability_zone":          "c.availability_zone",
	"region":                     "c.region",
	"timestamp":                  "c.ts",
	"price_usd_hourly":           "c.price_usd_hourly",
	"femto_usd_per_p_core_cycle": "c.femto_usd_per_p_core_cycle",
	"femto_usd_per_v_core_cycle": "c.femto_usd_per_v_core_cycle",
}

// ValidSortColumn reports whether name is an accepted sort key.
func ValidSortColumn(name string) bool {
	_, ok := sortColumns[name]
	return ok
}

// CurrentPrices returns current-price rows matching the filter, joined
// with catalog specs.
func (s *Store) CurrentPrices(ctx context.Context, filter CurrentPriceFilter) ([]CurrentPriceRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT c.instance_type, c.product_description, c.availability_zone, c.region,
		       c.ts, c.price_usd_hourly::text,
		       c.femto_usd_per_p_core_cycle, c.femto_usd_per_v_core_cycle,
		       it.p_cores, it.v_cores, it.sustained_clock_speed_ghz
		FROM current_spot_instance_prices c
		LEFT JOIN instance_types it ON it.name = c.instance_type
	`)

	var args []any
	var where []string
	if len(filter.InstanceTypes) > 0 {
		args = append(args, filter.InstanceTypes)
		where = append(where, fmt.Sprintf("c.instance_type = ANY($%d)", len(args)))
	}
	if len(filter.Regions) > 0 {
		args = append(args, filter.Regions)
		where = append(where, fmt.Sprintf("c.region = ANY($%d)", len(args)))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	orderBy := "c.instance_type"
	if filter.SortBy != "" {
		col, ok := sortColumns[filter.SortBy]
		if !ok {
			return nil, fmt.Errorf("unsupported sort column %q", filter.SortBy)
		}
		orderBy = col
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, c.availability_zone ASC", orderBy, direction))

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query current prices: %w", err)
	}
	defer rows.Close()

	var result []CurrentPriceRow
	for rows.Next() {
		var row CurrentPriceRow
		var price string
		if err := rows.Scan(
			&row.InstanceType, &row.ProductDescription, &row.AvailabilityZone, &row.Region,
			&row.Timestamp, &price,
			&row.FemtoUSDPerPCoreCycle, &row.FemtoUSDPerVCoreCycle,
			&row.PCores, &row.VCores, &row.SustainedClockSpeedGHz,
		); err != nil {
			return nil, fmt.Errorf("scan current price: %w", err)
		}
		row.PriceUSDHourly, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse stored price %q: %w", price, err)
		}
		row.Timestamp = row.Timestamp.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate current prices: %w", err)
	}
	return result, nil
}
