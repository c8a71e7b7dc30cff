package config

import "time"

// Config is the root configuration for spotwatch.
type Config struct {
	AWS      AWSConfig    `yaml:"aws"`
	Database DBConfig     `yaml:"database"`
	Ingest   IngestConfig `yaml:"ingest"`
	Server   ServerConfig `yaml:"server"`
}

// AWSConfig holds provider settings. Credentials come from the standard SDK
// chain (environment, shared config, instance role), not from this file.
type AWSConfig struct {
	// CatalogRegion is the region used for catalog sync. Instance type
	// specs are global, so one region is enough.
	CatalogRegion string `yaml:"catalog_region"`
}

// DBConfig holds the TimescaleDB connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// IngestConfig holds ingestion run settings.
type IngestConfig struct {
	Regions         []string `yaml:"regions"` // empty means all provider regions
	LookbackDays    int      `yaml:"lookback_days"`
	EndOffsetDays   int      `yaml:"end_offset_days"`
	MaxConcurrency  int      `yaml:"max_concurrency"`
	SinkCapacity    int      `yaml:"sink_capacity"`
	AppendBatchSize int      `yaml:"append_batch_size"`
}

// ServerConfig holds query API settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxPageSize  int           `yaml:"max_page_size"`
}
