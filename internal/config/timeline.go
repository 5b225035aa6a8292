package config

import (
	"time"

	"github.com/spf13/pflag"
)

// TimelineConfig holds settings for rendering one job's history.
type TimelineConfig struct {
	Job             uint64
	PGDSN           string
	RedisAddr       string
	RPCURL          string
	MarketplaceData string
	Key             string
	KeyFile         string
	Fanout          int
	RPCRate         float64
	PubkeyTTL       time.Duration
	Out             string
	LogLevel        string
}

// LoadTimeline merges .env, config file, environment variables, and flags into TimelineConfig.
func LoadTimeline(cfgFile string, flags *pflag.FlagSet) (TimelineConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"fanout":     8,
		"rpc-rate":   10.0,
		"pubkey-ttl": 24 * time.Hour,
	})
	if err != nil {
		return TimelineConfig{}, err
	}

	return TimelineConfig{
		Job:             v.GetUint64("job"),
		PGDSN:           v.GetString("pg-dsn"),
		RedisAddr:       v.GetString("redis-addr"),
		RPCURL:          v.GetString("rpc"),
		MarketplaceData: v.GetString("marketplace-data"),
		Key:             v.GetString("key"),
		KeyFile:         v.GetString("key-file"),
		Fanout:          v.GetInt("fanout"),
		RPCRate:         v.GetFloat64("rpc-rate"),
		PubkeyTTL:       v.GetDuration("pubkey-ttl"),
		Out:             v.GetString("out"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
