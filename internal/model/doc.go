// Package model defines shared data types used across the spot price tracker.
//
// All types mirror the database schema (instance_types, spot_price_history,
// current_spot_instance_prices).
//
// Conventions:
//   - Prices: decimal.Decimal USD per hour, exact as reported by the provider
//   - Derived cost metrics: femto-USD per core cycle, float64, nil when underivable
//   - Timestamps: time.Time, always UTC
//   - IDs: string for instance type names, uuid.UUID for observation surrogate IDs
package model
