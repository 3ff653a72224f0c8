// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Store() StoreConfig
	Browser() BrowserConfig
	Recorder() RecorderConfig
	Executor() ExecutorConfig
	Cache() CacheConfig
	Watcher() WatcherConfig
	Oracle() OracleConfig
	RateLimit() RateLimitConfig
	Apply() ApplyConfig

	SetBrowserHeadless(bool)
	SetExecutorSpeed(string)
	SetExecutorUseProfileData(bool)
	SetApplyTimeout(time.Duration)
}

// Config holds the entire application configuration. Fields are private to
// enforce access through the Interface getters.
type Config struct {
	logger    LoggerConfig
	store     StoreConfig
	browser   BrowserConfig
	recorder  RecorderConfig
	executor  ExecutorConfig
	cache     CacheConfig
	watcher   WatcherConfig
	oracle    OracleConfig
	ratelimit RateLimitConfig
	apply     ApplyConfig
}

// rawConfig is the unmarshal target. Viper cannot decode into unexported
// fields, so the sections are decoded here and then moved into Config.
type rawConfig struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Recorder  RecorderConfig  `mapstructure:"recorder" yaml:"recorder"`
	Executor  ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Watcher   WatcherConfig   `mapstructure:"watcher" yaml:"watcher"`
	Oracle    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
	Apply     ApplyConfig     `mapstructure:"apply" yaml:"apply"`
}

func (r rawConfig) toConfig() *Config {
	return &Config{
		logger:    r.Logger,
		store:     r.Store,
		browser:   r.Browser,
		recorder:  r.Recorder,
		executor:  r.Executor,
		cache:     r.Cache,
		watcher:   r.Watcher,
		oracle:    r.Oracle,
		ratelimit: r.RateLimit,
		apply:     r.Apply,
	}
}

func (c *Config) Logger() LoggerConfig       { return c.logger }
func (c *Config) Store() StoreConfig         { return c.store }
func (c *Config) Browser() BrowserConfig     { return c.browser }
func (c *Config) Recorder() RecorderConfig   { return c.recorder }
func (c *Config) Executor() ExecutorConfig   { return c.executor }
func (c *Config) Cache() CacheConfig         { return c.cache }
func (c *Config) Watcher() WatcherConfig     { return c.watcher }
func (c *Config) Oracle() OracleConfig       { return c.oracle }
func (c *Config) RateLimit() RateLimitConfig { return c.ratelimit }
func (c *Config) Apply() ApplyConfig         { return c.apply }

func (c *Config) SetBrowserHeadless(b bool)        { c.browser.Headless = b }
func (c *Config) SetExecutorSpeed(s string)        { c.executor.Speed = s }
func (c *Config) SetExecutorUseProfileData(b bool) { c.executor.UseProfileData = b }
func (c *Config) SetApplyTimeout(d time.Duration)  { c.apply.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StoreConfig selects and configures the persistent document store.
type StoreConfig struct {
	// Type is "file" or "postgres".
	Type     string         `mapstructure:"type" yaml:"type"`
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds the connection details for a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the config as a pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// RecorderConfig tunes the recording session.
type RecorderConfig struct {
	// PollInterval is how often the capture buffer and URL are sampled.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// DebounceWindow collapses same-type events closer than this.
	DebounceWindow time.Duration `mapstructure:"debounce_window" yaml:"debounce_window"`
}

// ExecutorConfig tunes workflow replay.
type ExecutorConfig struct {
	Speed          string        `mapstructure:"speed" yaml:"speed"` // fast, normal, slow
	MaxJitter      time.Duration `mapstructure:"max_jitter" yaml:"max_jitter"`
	UseProfileData bool          `mapstructure:"use_profile_data" yaml:"use_profile_data"`
}

// CacheConfig bounds the question cache.
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// WatcherConfig tunes the dynamic form-field change watcher.
type WatcherConfig struct {
	DrainInterval time.Duration `mapstructure:"drain_interval" yaml:"drain_interval"`
}

// OracleConfig configures the external reasoning service client.
type OracleConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RequestsPerSecond is a courtesy throttle below the hard window budget.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// RateLimitConfig bounds oracle calls with a fixed rolling window.
type RateLimitConfig struct {
	MaxCalls int           `mapstructure:"max_calls" yaml:"max_calls"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// ApplyConfig tunes the fast-fill batch run.
type ApplyConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot-cli")
	v.SetDefault("logger.log_file", "formpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Store --
	v.SetDefault("store.type", "file")
	v.SetDefault("store.data_dir", "~/.formpilot")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.dbname", "formpilot")
	v.SetDefault("store.postgres.sslmode", "disable")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Recorder --
	v.SetDefault("recorder.poll_interval", "1s")
	v.SetDefault("recorder.debounce_window", "100ms")

	// -- Executor --
	v.SetDefault("executor.speed", "normal")
	v.SetDefault("executor.max_jitter", "200ms")
	v.SetDefault("executor.use_profile_data", true)

	// -- Cache --
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl", "720h") // 30 days.

	// -- Watcher --
	v.SetDefault("watcher.drain_interval", "1s")

	// -- Oracle --
	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.timeout", "45s")
	v.SetDefault("oracle.requests_per_second", 0.5)

	// -- Rate limit --
	v.SetDefault("ratelimit.max_calls", 10)
	v.SetDefault("ratelimit.window", "60s")

	// -- Apply --
	v.SetDefault("apply.timeout", "3m")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return raw.toConfig()
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("oracle.api_key", "FORMPILOT_ORACLE_API_KEY")
	v.BindEnv("store.postgres.password", "FORMPILOT_PG_PASSWORD")

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg := raw.toConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.store.Type {
	case "file", "postgres":
	default:
		return fmt.Errorf("store.type must be 'file' or 'postgres', got %q", c.store.Type)
	}
	switch c.executor.Speed {
	case "fast", "normal", "slow":
	default:
		return fmt.Errorf("executor.speed must be fast, normal or slow, got %q", c.executor.Speed)
	}
	if c.cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be a positive integer")
	}
	if c.cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be a positive duration")
	}
	if c.ratelimit.MaxCalls <= 0 || c.ratelimit.Window <= 0 {
		return fmt.Errorf("ratelimit.max_calls and ratelimit.window must be positive")
	}
	if c.watcher.DrainInterval <= 0 {
		return fmt.Errorf("watcher.drain_interval must be a positive duration")
	}
	return nil
}

var _ Interface = (*Config)(nil)
