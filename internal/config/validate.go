package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Ingest.LookbackDays < 1 {
		return errors.New("ingest.lookback_days must be >= 1")
	}
	if c.Ingest.EndOffsetDays < 0 {
		return errors.New("ingest.end_offset_days must be >= 0")
	}
	if c.Ingest.EndOffsetDays >= c.Ingest.LookbackDays {
		return fmt.Errorf("ingest.end_offset_days (%d) must be less than lookback_days (%d)",
			c.Ingest.EndOffsetDays, c.Ingest.LookbackDays)
	}
	if c.Ingest.MaxConcurrency < 1 {
		return errors.New("ingest.max_concurrency must be >= 1")
	}
	if c.Ingest.SinkCapacity < 1 {
		return errors.New("ingest.sink_capacity must be >= 1")
	}
	if c.Ingest.AppendBatchSize < 1 {
		return errors.New("ingest.append_batch_size must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxPageSize < 1 {
		return errors.New("server.max_page_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
