package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for BarVision Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Venue     VenueConfig     `yaml:"venue"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Matrix    MatrixConfig    `yaml:"matrix"`
	Devices   DevicesConfig   `yaml:"devices"`
	Sports    SportsConfig    `yaml:"sports"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// VenueConfig contains venue-specific information.
// Timezone is the IANA zone name used for all schedule fire-time
// computation (e.g. "America/Chicago").
type VenueConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// SchedulerConfig contains schedule trigger engine settings.
type SchedulerConfig struct {
	// TickInterval is how often the engine scans for matured schedules (seconds).
	TickInterval int `yaml:"tick_interval"`

	// GameLookahead is how far ahead of "now" the game discovery window
	// extends (minutes).
	GameLookahead int `yaml:"game_lookahead"`

	// PowerOnSettleMS is the fixed settle delay after a power_on step.
	// Displays and set-top boxes need longer than routing commands.
	PowerOnSettleMS int `yaml:"power_on_settle_ms"`

	// HistoryLimit is the default number of execution records returned
	// per schedule by the history endpoints.
	HistoryLimit int `yaml:"history_limit"`
}

// MatrixConfig contains video matrix switcher connection settings.
type MatrixConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// CommandTimeout is the per-command timeout in milliseconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// DevicesConfig describes the controllable device estate: tuner inputs
// and display outputs, grouped by control protocol.
type DevicesConfig struct {
	DirecTV     []DirecTVDeviceConfig `yaml:"directv"`
	GlobalCache GlobalCacheConfig     `yaml:"globalcache"`
	FireTV      []FireTVDeviceConfig  `yaml:"firetv"`
	Outputs     []OutputConfig        `yaml:"outputs"`
}

// DirecTVDeviceConfig is one DirecTV receiver reachable via vendor IP control.
type DirecTVDeviceConfig struct {
	Input int    `yaml:"input"` // matrix input number this receiver feeds
	Name  string `yaml:"name"`
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`

	// CommandTimeout in milliseconds. The vendor stack is slow to answer,
	// so this default is longer than the IR path.
	CommandTimeout int `yaml:"command_timeout"`
}

// GlobalCacheConfig describes IR-over-network units and the emitters
// attached to them.
type GlobalCacheConfig struct {
	Units   []GlobalCacheUnitConfig   `yaml:"units"`
	Senders []GlobalCacheSenderConfig `yaml:"senders"`
}

// GlobalCacheUnitConfig is one physical iTach-class unit. One TCP session
// per unit is shared by every emitter on that unit.
type GlobalCacheUnitConfig struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// CommandTimeout in milliseconds. IR is fire-and-forget; keep this short.
	CommandTimeout int `yaml:"command_timeout"`
}

// GlobalCacheSenderConfig binds a matrix input to an IR emitter port on a unit.
type GlobalCacheSenderConfig struct {
	Input int    `yaml:"input"`
	Name  string `yaml:"name"`
	Unit  string `yaml:"unit"` // GlobalCacheUnitConfig.ID
	Port  string `yaml:"port"` // emitter address, e.g. "1:1"

	// DeviceType selects the IR code set for the box behind the emitter,
	// e.g. "cable" or "satellite".
	DeviceType string `yaml:"device_type"`

	// InterDigitDelayMS is the pause between digit bursts when tuning.
	InterDigitDelayMS int `yaml:"inter_digit_delay_ms"`
}

// FireTVDeviceConfig is one streaming box reachable over its network
// control port. Streaming boxes support power and app launch only.
type FireTVDeviceConfig struct {
	Input          int    `yaml:"input"`
	Name           string `yaml:"name"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	CommandTimeout int    `yaml:"command_timeout"`
}

// OutputConfig is one display address on the video matrix.
// Power control rides CEC over the matrix connection when CEC is true.
type OutputConfig struct {
	Number int    `yaml:"number"`
	Name   string `yaml:"name"`
	CEC    bool   `yaml:"cec"`
}

// SportsConfig contains settings for the external game-listing service.
type SportsConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Timeout for listing requests in seconds. The listings service is
	// treated as unreliable; a slow response must never delay device
	// commands beyond this bound.
	Timeout int `yaml:"timeout"`

	// Leagues to include in discovery queries (e.g. ["nfl", "nba", "mlb"]).
	Leagues []string `yaml:"leagues"`

	// PreferredProviders is a strict priority order for choosing which
	// broadcast of a game to tune when it airs on more than one
	// provider type. Valid values: satellite, cable, streaming.
	PreferredProviders []string `yaml:"preferred_providers"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BARVISION_SECTION_KEY
// For example: BARVISION_DATABASE_PATH, BARVISION_SPORTS_API_KEY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Venue: VenueConfig{
			ID:       "venue-001",
			Name:     "BarVision",
			Timezone: "America/Chicago",
		},
		Database: DatabaseConfig{
			Path:        "./data/barvision.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Scheduler: SchedulerConfig{
			TickInterval:    15,
			GameLookahead:   120,
			PowerOnSettleMS: 4000,
			HistoryLimit:    20,
		},
		Matrix: MatrixConfig{
			Host:           "localhost",
			Port:           23,
			CommandTimeout: 2000,
		},
		Sports: SportsConfig{
			Timeout:            10,
			PreferredProviders: []string{"satellite", "cable"},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "barvision-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0, // unlimited
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BARVISION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Venue
	if v := os.Getenv("BARVISION_VENUE_TIMEZONE"); v != "" {
		cfg.Venue.Timezone = v
	}

	// Database
	if v := os.Getenv("BARVISION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sports listings service
	if v := os.Getenv("BARVISION_SPORTS_BASE_URL"); v != "" {
		cfg.Sports.BaseURL = v
	}
	if v := os.Getenv("BARVISION_SPORTS_API_KEY"); v != "" {
		cfg.Sports.APIKey = v
	}

	// MQTT
	if v := os.Getenv("BARVISION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BARVISION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BARVISION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("BARVISION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("BARVISION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Venue validation
	if c.Venue.ID == "" {
		errs = append(errs, "venue.id is required")
	}
	if c.Venue.Timezone == "" {
		errs = append(errs, "venue.timezone is required")
	} else if _, err := time.LoadLocation(c.Venue.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("venue.timezone %q is not a valid IANA zone", c.Venue.Timezone))
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Scheduler validation
	if c.Scheduler.TickInterval < 1 {
		errs = append(errs, "scheduler.tick_interval must be at least 1 second")
	}
	if c.Scheduler.GameLookahead < 0 {
		errs = append(errs, "scheduler.game_lookahead cannot be negative")
	}

	// Device validation. The same input may legitimately carry both a
	// DirecTV endpoint and an IR sender (IP preferred, IR fallback), but
	// duplicates within one protocol are always a config mistake.
	if dup := firstDuplicateInput(c.Devices); dup != 0 {
		errs = append(errs, fmt.Sprintf("devices: input %d configured twice within the same protocol", dup))
	}

	// Sports validation
	if c.Sports.Enabled && c.Sports.BaseURL == "" {
		errs = append(errs, "sports.base_url is required when sports.enabled is true")
	}
	for _, p := range c.Sports.PreferredProviders {
		if p != "satellite" && p != "cable" && p != "streaming" {
			errs = append(errs, fmt.Sprintf("sports.preferred_providers: unknown provider %q", p))
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// firstDuplicateInput returns the first input number that appears twice
// within a single protocol family, or 0 if none.
func firstDuplicateInput(d DevicesConfig) int {
	inputs := make([]int, 0, len(d.DirecTV))
	for _, dev := range d.DirecTV {
		inputs = append(inputs, dev.Input)
	}
	if n := duplicateIn(inputs); n != 0 {
		return n
	}

	inputs = inputs[:0]
	for _, s := range d.GlobalCache.Senders {
		inputs = append(inputs, s.Input)
	}
	if n := duplicateIn(inputs); n != 0 {
		return n
	}

	inputs = inputs[:0]
	for _, f := range d.FireTV {
		inputs = append(inputs, f.Input)
	}
	return duplicateIn(inputs)
}

func duplicateIn(inputs []int) int {
	seen := make(map[int]struct{}, len(inputs))
	for _, n := range inputs {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return 0
}

// Location returns the venue's time zone. Validate guarantees the zone
// name loads, so an error here means the config was mutated after Load.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Venue.Timezone)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the scheduler tick interval as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickInterval) * time.Second
}

// GetGameLookahead returns the discovery lookahead window as a Duration.
func (c *Config) GetGameLookahead() time.Duration {
	return time.Duration(c.Scheduler.GameLookahead) * time.Minute
}
