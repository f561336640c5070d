package config

import "time"

// Config represents the main configuration structure
type Config struct {
	RPCURL         string       `json:"rpcUrl"`
	WSURL          string       `json:"wsUrl"`
	PreferWS       bool         `json:"preferWs"`
	LogLevel       string       `json:"logLevel"`
	RequestTimeout int          `json:"requestTimeout"` // ms
	Cache          *CacheConfig `json:"cache,omitempty"`
}

// CacheConfig represents result cache configuration
type CacheConfig struct {
	Enabled bool `json:"enabled"`
	TTL     int  `json:"ttl"`  // seconds
	Size    int  `json:"size"` // number of entries
}

// Default values
const (
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 5000 // ms
)

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}
