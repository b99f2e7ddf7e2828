package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string      `mapstructure:"host"`
	Port     int         `mapstructure:"port"`
	User     string      `mapstructure:"user"`
	Password string      `mapstructure:"password"`
	DBName   string      `mapstructure:"dbname"`
	SSLMode  string      `mapstructure:"sslmode"`
	TimeZone string      `mapstructure:"timezone"`
	SSM      PostgresSSM `mapstructure:"ssm"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PostgresSSM names the Parameter Store entries that override host and credentials in prod.
type PostgresSSM struct {
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`
}

// parameterLookup is replaced in tests.
var parameterLookup = getParameterStoreValue

func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.credentials(env)
	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN points at the server's default "postgres" database, used to create DBName.
// It resolves the same host and credentials as DSN.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	host, user, password := cfg.credentials(env)
	return cfg.dsn(host, user, password, "postgres")
}

// credentials returns the configured host, user and password, overridden by
// Parameter Store values in prod.
func (cfg *PostgresConfig) credentials(env string) (host, user, password string) {
	host, user, password = cfg.Host, cfg.User, cfg.Password
	if env != "prod" {
		return host, user, password
	}
	if v := parameterLookup(cfg.SSM.HostParam, true); v != "" {
		host = v
	}
	if v := parameterLookup(cfg.SSM.UserParam, true); v != "" {
		user = v
	}
	if v := parameterLookup(cfg.SSM.PasswordParam, true); v != "" {
		password = v
	}
	return host, user, password
}

func (cfg *PostgresConfig) dsn(host, user, password, dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbname, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	if parameterName == "" {
		return ""
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
