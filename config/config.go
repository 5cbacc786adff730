// Package config loads the endpoint configuration of the tracker store and the event broker.
//
// Values are read from a YAML endpoints file first, then overlaid with environment variables
// prefixed TRACKER_STORE_ and EVENT_BROKER_. Optional dotenv files are loaded into the
// environment before the overlay is applied:
//
//	tracker_store:
//	  type: sql
//	  dialect: postgresql
//	  host: localhost
//	  db: rasa
//	  retry:
//	    max_retries: 5
//	    delay: 2s
//	    backoff: exponential
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// BackoffConstant waits the configured delay between connection attempts.
	BackoffConstant = "constant"

	// BackoffExponential doubles the delay after each failed connection attempt.
	BackoffExponential = "exponential"

	defaultRetryDelay = 5 * time.Second
)

var (
	// ErrInvalidConfig is returned when the endpoint configuration can not be read or is inconsistent.
	ErrInvalidConfig = errors.New("endpoint configuration is not valid")

	// ErrUnsupportedDialect is returned when a SQL dialect is not one of postgresql, mysql, sqlite.
	ErrUnsupportedDialect = errors.New("unsupported sql dialect")
)

// Endpoints is the root of the endpoints file.
type Endpoints struct {
	TrackerStore StoreConfig  `yaml:"tracker_store" envPrefix:"TRACKER_STORE_"`
	EventBroker  BrokerConfig `yaml:"event_broker" envPrefix:"EVENT_BROKER_"`
}

// StoreConfig selects and parameterizes the tracker store backend.
type StoreConfig struct {
	Type       string `yaml:"type" env:"TYPE"`
	URL        string `yaml:"url" env:"URL"`
	Host       string `yaml:"host" env:"HOST"`
	Port       int    `yaml:"port" env:"PORT"`
	DB         string `yaml:"db" env:"DB"`
	Username   string `yaml:"username" env:"USERNAME"`
	Password   string `yaml:"password" env:"PASSWORD"`
	AuthSource string `yaml:"auth_source" env:"AUTH_SOURCE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
	Dialect    string `yaml:"dialect" env:"DIALECT"`
	Adapter    string `yaml:"adapter" env:"ADAPTER"`
	TableName  string `yaml:"table_name" env:"TABLE_NAME"`
	KeyPrefix  string `yaml:"key_prefix" env:"KEY_PREFIX"`

	// RecordExp is the default time to live of key-value records in seconds, 0 disables expiry.
	RecordExp float64 `yaml:"record_exp" env:"RECORD_EXP"`

	Retry RetryConfig `yaml:"retry" envPrefix:"RETRY_"`

	// Extra keeps unknown keys for custom backend types.
	Extra map[string]any `yaml:",inline"`
}

// RetryConfig controls how often and how fast a backend connection is retried.
type RetryConfig struct {
	// MaxRetries of 0 retries until the connection succeeds or the context is canceled.
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	Delay      time.Duration `yaml:"delay" env:"DELAY"`
	Backoff    string        `yaml:"backoff" env:"BACKOFF"`
}

// BrokerConfig configures the event channel new events are published to.
type BrokerConfig struct {
	Type     string `yaml:"type" env:"TYPE"`
	URL      string `yaml:"url" env:"URL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	DB       string `yaml:"db" env:"DB"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	Channel  string `yaml:"channel" env:"CHANNEL"`
}

// Defaults returns the configuration used for keys that are neither in the file nor in the environment.
func Defaults() Endpoints {
	return Endpoints{
		TrackerStore: StoreConfig{
			Retry: RetryConfig{
				Delay:   defaultRetryDelay,
				Backoff: BackoffConstant,
			},
		},
	}
}

// Load reads the endpoints file at path, which may be empty to skip it, loads the dotenv files
// into the process environment and applies the environment overlay.
func Load(path string, dotenvFiles ...string) (Endpoints, error) {
	var data []byte

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Endpoints{}, errors.Join(ErrInvalidConfig, err)
		}

		data = content
	}

	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return Endpoints{}, errors.Join(ErrInvalidConfig, fmt.Errorf("loading dotenv files %v", dotenvFiles), err)
		}
	}

	return Parse(data)
}

// Parse decodes an endpoints document and applies the environment overlay.
func Parse(data []byte) (Endpoints, error) {
	endpoints := Defaults()

	if err := yaml.Unmarshal(data, &endpoints); err != nil {
		return Endpoints{}, errors.Join(ErrInvalidConfig, err)
	}

	if err := env.Parse(&endpoints); err != nil {
		return Endpoints{}, errors.Join(ErrInvalidConfig, err)
	}

	if err := endpoints.TrackerStore.Validate(); err != nil {
		return Endpoints{}, err
	}

	return endpoints, nil
}

// Validate checks the values that can not be checked by decoding alone.
func (c StoreConfig) Validate() error {
	if c.Retry.MaxRetries < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries))
	}

	if c.Retry.Delay < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}

	switch c.Retry.Backoff {
	case "", BackoffConstant, BackoffExponential:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("retry.backoff %q is neither %s nor %s", c.Retry.Backoff, BackoffConstant, BackoffExponential))
	}

	if c.RecordExp < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("record_exp must not be negative, got %v", c.RecordExp))
	}

	return nil
}

// RecordExpiration returns RecordExp as a duration.
func (c StoreConfig) RecordExpiration() time.Duration {
	return time.Duration(c.RecordExp * float64(time.Second))
}
