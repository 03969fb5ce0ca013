package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"painel/pkg/retry"
)

// Environment variables that take precedence over the file.
const (
	EnvSpreadsheetID   = "SPREADSHEET_ID"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvCredentialsJSON = "PAINEL_CREDENTIALS_JSON"
)

const DefaultFilename = "painel.toml"

// Duration is a time.Duration written as "2s" or "5m0s" in the file.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type SheetsConfig struct {
	SpreadsheetID   string `validate:"required"`
	CredentialsFile string `validate:"required_without=CredentialsJSON"`
	// CredentialsJSON only comes from the environment, never from the file.
	CredentialsJSON string `toml:"-"`
}

type RetryConfig struct {
	MaxAttempts int      `validate:"min=1,max=20"`
	BaseDelay   Duration `validate:"gt=0"`
	// Budget of zero disables the wall-clock cap.
	Budget Duration `validate:"gte=0"`
}

type BatchConfig struct {
	// Google allows 60 reads per minute per user.
	PartitionDelay Duration `validate:"gte=0"`
}

type CacheConfig struct {
	OperationalTTL Duration `validate:"gt=0"`
	ReferenceTTL   Duration `validate:"gt=0"`
}

type ServerConfig struct {
	ListenAddress string `validate:"required"`
}

type Store struct {
	Sheets SheetsConfig
	Retry  RetryConfig
	Batch  BatchConfig
	Cache  CacheConfig
	Server ServerConfig
}

// Config is the settings file of a painel process.
type Config struct {
	Filename string
	Store    Store
}

var validate = validator.New()

func Defaults() Store {
	p := retry.DefaultPolicy()
	return Store{
		Retry: RetryConfig{
			MaxAttempts: p.MaxAttempts,
			BaseDelay:   Duration(p.BaseDelay),
			Budget:      Duration(p.Budget),
		},
		Batch: BatchConfig{PartitionDelay: Duration(1100 * time.Millisecond)},
		Cache: CacheConfig{
			OperationalTTL: Duration(5 * time.Minute),
			ReferenceTTL:   Duration(30 * time.Minute),
		},
		Server: ServerConfig{ListenAddress: ":8080"},
	}
}

// Write the current config out to a toml file.
func (c *Config) Save() error {
	b, err := toml.Marshal(c.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Filename, b, 0644)
}

// Load the current config from a toml file. Keys missing from the file keep
// their current values.
func (c *Config) Load() error {
	b, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &c.Store)
}

// Validate checks the settings after environment overrides are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c.Store); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config %s: %s failed on %q", c.Filename, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config %s: %w", c.Filename, err)
	}
	return nil
}

// RetryPolicy builds the retry policy described by the file.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Store.Retry.MaxAttempts,
		BaseDelay:   c.Store.Retry.BaseDelay.Std(),
		Budget:      c.Store.Retry.Budget.Std(),
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvSpreadsheetID); v != "" {
		c.Store.Sheets.SpreadsheetID = v
	}
	if v := getenv(EnvCredentialsFile); v != "" {
		c.Store.Sheets.CredentialsFile = v
	}
	if v := getenv(EnvCredentialsJSON); v != "" {
		c.Store.Sheets.CredentialsJSON = v
	}
}

// New loads filename, writing it with defaults first when it does not exist,
// then applies environment overrides and validates the result.
func New(filename string) (*Config, error) {
	return load(filename, os.Getenv)
}

func load(filename string, getenv func(string) string) (*Config, error) {
	c := &Config{
		Filename: filename,
		Store:    Defaults(),
	}
	if err := c.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		if err := c.Save(); err != nil {
			return nil, fmt.Errorf("writing default %s: %w", filename, err)
		}
	}
	c.applyEnv(getenv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
