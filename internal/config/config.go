package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	instance *Config
	once     sync.Once
)

// Config represents the complete proxy server configuration
// Aggregates all component configurations for centralized management
// Loaded from a YAML file; environment variables are not read
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`

	// AdminPort serves /metrics on a listener separate from the
	// forward-proxy port. Zero disables the admin listener.
	AdminPort int `yaml:"adminPort" json:"adminPort" default:"9090"`
}

// ServerConfig defines listener configuration parameters.
// Port is the listen port; ReadTimeout and WriteTimeout are the
// per-connection read/write deadlines. Backlog and IdleTimeout are not
// applied by the listener. There is no TLS surface here: HTTPS tunneling is out of
// scope, so this proxy only ever terminates plaintext HTTP/1.x.
type ServerConfig struct {
	Port         int           `yaml:"port" json:"port" default:"8080"`
	Backlog      int           `yaml:"backlog" json:"backlog" default:"100"`
	ReadTimeout  time.Duration `yaml:"readTimeout" json:"readTimeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" json:"writeTimeout" default:"30s"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" json:"idleTimeout" default:"60s"`
}

// CacheConfig defines the LRU response cache's byte bounds. There is
// no freshness concept here: entries live until evicted by the LRU
// policy, not until they expire.
type CacheConfig struct {
	MaxTotalBytes int64 `yaml:"maxTotalBytes" json:"maxTotalBytes" default:"209715200"`
	MaxEntryBytes int64 `yaml:"maxEntryBytes" json:"maxEntryBytes" default:"10485760"`
}

// RateLimitConfig defines per-client-IP connection admission limits,
// enforced by a token bucket per client address.
type RateLimitConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" default:"true"`
	Capacity   int  `yaml:"capacity" json:"capacity" default:"100"`
	RefillRate int  `yaml:"refillRate" json:"refillRate" default:"10"`
}

// TracingConfig defines OpenTelemetry tracing configuration
// Controls distributed tracing and observability
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled" json:"enabled" default:"false"`
	ServiceName    string  `yaml:"serviceName" json:"serviceName" default:"forward-cache-proxy"`
	ServiceVersion string  `yaml:"serviceVersion" json:"serviceVersion" default:"1.0.0"`
	Environment    string  `yaml:"environment" json:"environment" default:"development"`
	JaegerEndpoint string  `yaml:"jaegerEndpoint" json:"jaegerEndpoint"`
	OTLPEndpoint   string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRatio  float64 `yaml:"samplingRatio" json:"samplingRatio" default:"0.1"`
}

// DefaultConfig returns configuration with the compiled-in constants:
// max_total_bytes = 200 MiB, max_entry_bytes = 10 MiB, accept backlog
// 100, 30s connection timeouts.
func DefaultConfig() *Config {
	return &Config{
		AdminPort: 9090,
		Server: ServerConfig{
			Port:         8080,
			Backlog:      100,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Cache: CacheConfig{
			MaxTotalBytes: 200 * 1024 * 1024,
			MaxEntryBytes: 10 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Capacity:   100,
			RefillRate: 10,
		},
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    "forward-cache-proxy",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			SamplingRatio:  0.1,
		},
	}
}

// GetInstance returns the singleton config instance
// Uses sync.Once to ensure thread-safe lazy initialisation
func GetInstance() *Config {
	once.Do(func() {
		instance = DefaultConfig()
	})
	return instance
}

// LoadConfig loads configuration from file and updates singleton.
// Reads and unmarshals the YAML file with gopkg.in/yaml.v3. A missing
// file is not an error: the singleton falls back to DefaultConfig,
// matching cmd/proxy/main.go's default "config.yaml" path that need
// not exist.
func LoadConfig(path string) error {
	cfg, err := loadFromFile(path)
	if err != nil {
		return err
	}

	once.Do(func() {
		instance = cfg
	})
	return nil
}

// loadFromFile reads configuration from a YAML file, falling back to
// DefaultConfig's values for anything the file omits.
func loadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}
