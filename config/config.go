package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Bittrex  BittrexConfig  `mapstructure:"bittrex"`
	Feeder   FeederConfig   `mapstructure:"feeder"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// BittrexConfig holds the exchange endpoint and account credentials.
type BittrexConfig struct {
	APIKey    string     `mapstructure:"api_key"`
	APISecret string     `mapstructure:"api_secret"`
	REST      RESTConfig `mapstructure:"rest"`
	SSM       BittrexSSM `mapstructure:"ssm"`
}

type RESTConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CandleInterval string        `mapstructure:"candle_interval"`
}

// BittrexSSM names the Parameter Store entries used for credentials in prod.
type BittrexSSM struct {
	APIKeyParam    string `mapstructure:"api_key_param"`
	APISecretParam string `mapstructure:"api_secret_param"`
}

// FeederConfig drives a single feeder run.
type FeederConfig struct {
	Symbols      []string      `mapstructure:"symbols"`       // symbols tracked from startup
	AddSymbols   []string      `mapstructure:"add_symbols"`   // validated against the exchange before tracking
	ResetSchema  bool          `mapstructure:"reset_schema"`  // drop and recreate tables (destructive)
	Backfill     bool          `mapstructure:"backfill"`      // load recent candles once
	ChartSymbols []string      `mapstructure:"chart_symbols"` // series to query and summarize
	Schedule     bool          `mapstructure:"schedule"`      // keep ingesting on Interval until stopped
	Interval     time.Duration `mapstructure:"interval"`
	OpTimeout    time.Duration `mapstructure:"op_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load reads config.yaml from the default search path and applies env overrides.
func Load() (*Config, error) {
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return LoadFrom(filepath.Join(pwd, "config"), filepath.Join(pwd, "../../config"))
	}
	return LoadFrom(filepath.Join(filepath.Dir(ex), "../config"), "config")
}

// LoadFrom reads config.yaml from the first matching path. A .env file in the
// working directory, if any, is loaded into the environment first.
func LoadFrom(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., BITTREX_REST_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bittrex.api_key", "")
	v.SetDefault("bittrex.api_secret", "")
	v.SetDefault("bittrex.rest.base_url", "https://api.bittrex.com")
	v.SetDefault("bittrex.rest.timeout", 10*time.Second)
	v.SetDefault("bittrex.rest.requests_per_sec", 5)
	v.SetDefault("bittrex.rest.max_retries", 2)
	v.SetDefault("bittrex.rest.candle_interval", "HOUR_1")
	v.SetDefault("bittrex.ssm.api_key_param", "BITTREX_API_KEY")
	v.SetDefault("bittrex.ssm.api_secret_param", "BITTREX_API_SECRET")

	v.SetDefault("feeder.symbols", []string{"BTC-USD", "ETH-USD"})
	v.SetDefault("feeder.interval", 5*time.Minute)
	v.SetDefault("feeder.op_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "127.0.0.1")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "testdb_5min")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 5)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.ttl", 15*time.Minute)
}

// bindLegacyEnv keeps the variable names used by existing .env files working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"bittrex.api_key":    {"BITTREX_API_KEY", "bittrex_public"},
		"bittrex.api_secret": {"BITTREX_API_SECRET", "bittrex_private"},
		"postgres.user":      {"POSTGRES_USER", "postgres_username"},
		"postgres.password":  {"POSTGRES_PASSWORD", "postgres_password"},
	}
	for key, names := range bindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// ResolveSecrets fills missing exchange credentials from Parameter Store in prod.
func (c *Config) ResolveSecrets() {
	if c.Log.Environment != "prod" {
		return
	}
	if c.Bittrex.APIKey == "" {
		c.Bittrex.APIKey = parameterLookup(c.Bittrex.SSM.APIKeyParam, true)
	}
	if c.Bittrex.APISecret == "" {
		c.Bittrex.APISecret = parameterLookup(c.Bittrex.SSM.APISecretParam, true)
	}
}

// Validate reports configuration the feeder cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Bittrex.APIKey == "" {
		errs = append(errs, errors.New("bittrex api key is required (BITTREX_API_KEY)"))
	}
	if c.Bittrex.APISecret == "" {
		errs = append(errs, errors.New("bittrex api secret is required (BITTREX_API_SECRET)"))
	}
	if c.Feeder.Schedule && c.Feeder.Interval <= 0 {
		errs = append(errs, fmt.Errorf("feeder interval must be positive, got %s", c.Feeder.Interval))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is required when redis is enabled"))
	}

	return errors.Join(errs...)
}
