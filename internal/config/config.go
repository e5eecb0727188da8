package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Containers may ship without a zoneinfo database.

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API          *APIConfig
	Gin          *GinConfig
	Postgres     *PostgresConfig
	Registration *RegistrationConfig
	Log          *LogConfig
}

type APIConfig struct {
	Environment        string
	BaseURL            string
	Port               string
	AllowedCORSDomains []string
	JWTSigningKey      string
}

type GinConfig struct {
	Mode string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

type RegistrationConfig struct {
	TimeZone         string
	MaxWriteAttempts int
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
	RequestTimeout   time.Duration
	SeedCompetitions bool
}

type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.allowedCORSDomains", []string{"http://localhost:3000"})
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslMode", "disable")
	v.SetDefault("registration.timeZone", "Asia/Jakarta")
	v.SetDefault("registration.maxWriteAttempts", 3)
	v.SetDefault("registration.retryInterval", 200*time.Millisecond)
	v.SetDefault("registration.maxRetryInterval", 2*time.Second)
	v.SetDefault("registration.requestTimeout", 10*time.Second)
	v.SetDefault("registration.seedCompetitions", true)
	v.SetDefault("log.level", "info")
}

// Load reads the config file at path. Every key can be overridden from the
// environment with the UISO_ prefix, e.g. UISO_API_JWTSIGNINGKEY.
func Load(path string) (*AppConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	return decode(v)
}

// Watch reloads the file on change and calls onChange with the new config.
// Invalid edits are reported through onError and otherwise ignored.
func Watch(path string, onChange func(*AppConfig), onError func(error)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		conf, err := decode(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(conf)
	})
	v.WatchConfig()

	return nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("UISO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return v, nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if conf.API.JWTSigningKey == "" {
		return nil, fmt.Errorf("api.jwtSigningKey is required")
	}
	if _, err := time.LoadLocation(conf.Registration.TimeZone); err != nil {
		return nil, fmt.Errorf("registration.timeZone -> %w", err)
	}

	return conf, nil
}

// Location returns the time zone used for date filters and exports.
func (c *RegistrationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}
