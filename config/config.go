// Package config loads the settings of the valuate tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "valuate.yaml"

// Config holds all application configuration.
type Config struct {
	Env string `yaml:"env" validate:"oneof=development production"`

	Valuation struct {
		TargetCurrency string `yaml:"target_currency" validate:"required,iso4217"`
		CostBasis      string `yaml:"cost_basis" validate:"oneof=average fifo"`
		// days a market price or a rate can be carried forward, 0 is unbounded.
		Lookback    int `yaml:"lookback" validate:"gte=0"`
		Concurrency int `yaml:"concurrency" validate:"gte=1"`
	} `yaml:"valuation"`

	EODHD struct {
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url" validate:"required,url"`
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"eodhd"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, defaults and finally validates the result.
//
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env values never override the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VALUATION_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("VALUATION_CURRENCY"); v != "" {
		c.Valuation.TargetCurrency = strings.ToUpper(v)
	}
	if v := os.Getenv("VALUATION_COST_BASIS"); v != "" {
		c.Valuation.CostBasis = v
	}
	for name, dst := range map[string]*int{
		"VALUATION_LOOKBACK":    &c.Valuation.Lookback,
		"VALUATION_CONCURRENCY": &c.Valuation.Concurrency,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", name, v, err)
		}
		*dst = n
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.EODHD.APIKey = v
	}
	if v := os.Getenv("VALUATION_CACHE_DIR"); v != "" {
		c.EODHD.CacheDir = v
	}
	if v := os.Getenv("VALUATION_DB"); v != "" {
		c.Database.SQLitePath = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Valuation.TargetCurrency == "" {
		c.Valuation.TargetCurrency = "EUR"
	}
	if c.Valuation.CostBasis == "" {
		c.Valuation.CostBasis = "average"
	}
	if c.Valuation.Concurrency == 0 {
		c.Valuation.Concurrency = 4
	}
	if c.EODHD.BaseURL == "" {
		c.EODHD.BaseURL = "https://eodhd.com/api"
	}
	if c.EODHD.CacheDir == "" {
		c.EODHD.CacheDir = os.TempDir()
	}
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("iso4217", validateISO4217); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid configuration: %s=%v fails %q", f.Namespace(), f.Value(), f.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validateISO4217 accepts the currency codes known to go-money.
func validateISO4217(fl validator.FieldLevel) bool {
	return money.GetCurrency(fl.Field().String()) != nil
}
