package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCatalogRegion   = "us-east-1"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultLookbackDays    = 30
	DefaultMaxConcurrency  = 5
	DefaultSinkCapacity    = 50
	DefaultAppendBatchSize = 500
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultMaxPageSize     = 1000
)

func (c *Config) applyDefaults() {
	if c.AWS.CatalogRegion == "" {
		c.AWS.CatalogRegion = DefaultCatalogRegion
	}

	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	if c.Ingest.LookbackDays == 0 {
		c.Ingest.LookbackDays = DefaultLookbackDays
	}
	if c.Ingest.MaxConcurrency == 0 {
		c.Ingest.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Ingest.SinkCapacity == 0 {
		c.Ingest.SinkCapacity = DefaultSinkCapacity
	}
	if c.Ingest.AppendBatchSize == 0 {
		c.Ingest.AppendBatchSize = DefaultAppendBatchSize
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.MaxPageSize == 0 {
		c.Server.MaxPageSize = DefaultMaxPageSize
	}
}
