package config

import "github.com/spf13/pflag"

// IngestConfig holds settings for replaying a raw log dump into the store.
type IngestConfig struct {
	In              string
	Errors          string
	Marketplace     string
	MarketplaceData string
	BatchSize       uint64
	PGDSN           string
	LogLevel        string
}

// LoadIngest merges .env, config file, environment variables, and flags into IngestConfig.
func LoadIngest(cfgFile string, flags *pflag.FlagSet) (IngestConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"in":         "./data/logs.jsonl",
		"errors":     "./data/decode_errors.jsonl",
		"batch-size": uint64(2000),
	})
	if err != nil {
		return IngestConfig{}, err
	}

	return IngestConfig{
		In:              v.GetString("in"),
		Errors:          v.GetString("errors"),
		Marketplace:     v.GetString("marketplace"),
		MarketplaceData: v.GetString("marketplace-data"),
		BatchSize:       v.GetUint64("batch-size"),
		PGDSN:           v.GetString("pg-dsn"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}

// MigrateConfig holds settings for the migrate command.
type MigrateConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadMigrate merges .env, config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return MigrateConfig{}, err
	}
	return MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
