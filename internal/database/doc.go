// Package database provides the TimescaleDB storage layer.
//
// Three tables back the pipeline:
//   - instance_types: the hardware catalog, fed by catalog sync
//   - spot_price_history: append-only observations (hypertable)
//   - current_spot_instance_prices: latest-wins projection, one row per
//     (instance_type, product_description, availability_zone)
package database
