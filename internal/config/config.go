package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/providers"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

const (
	envPrefix     = "WFA_"
	configFileEnv = "WFA_CONFIG"
)

// AppConfig is the process configuration. Keys are flat snake_case so each
// maps to a single WFA_ environment variable.
type AppConfig struct {
	Port      string `koanf:"port"`
	Verbosity int    `koanf:"verbosity"`

	MetricsNamespace string `koanf:"metrics_namespace"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	UserAgent   string        `koanf:"user_agent"`

	// RefreshInterval controls how often datasets and perimeters are reloaded.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	RefreshTimeout  time.Duration `koanf:"refresh_timeout"`

	// In-memory dataset retention.
	StoreMaxHistory int           `koanf:"store_max_history"` // versions per dataset (0 = unlimited)
	StoreMaxAge     time.Duration `koanf:"store_max_age"`     // max age of versions (0 = unlimited)

	// DBPath enables reading history when set.
	DBPath string `koanf:"db_path"`

	ClimateDataset       string `koanf:"climate_dataset"`
	ClimateCSV           string `koanf:"climate_csv"`
	ClimateDateField     string `koanf:"climate_date_field"`
	ClimateCategoryField string `koanf:"climate_category_field"`
	ClimateValueField    string `koanf:"climate_value_field"`
	ClimateDefaultCat    string `koanf:"climate_default_category"`

	OpenMeteoURL    string `koanf:"openmeteo_url"`
	OpenMeteoModels string `koanf:"openmeteo_models"`
	NominatimURL    string `koanf:"nominatim_url"`
	GoogleAPIKey    string `koanf:"google_geocoder_api_key"`

	WildfireEnabled       bool   `koanf:"wildfire_enabled"`
	WildfireURL           string `koanf:"wildfire_url"`
	WildfireMinYear       int    `koanf:"wildfire_min_year"`
	WildfireMaxPages      int    `koanf:"wildfire_max_pages"`
	WildfireDateField     string `koanf:"wildfire_date_field"`
	WildfireCategoryField string `koanf:"wildfire_category_field"`
	WildfireValueField    string `koanf:"wildfire_value_field"`
}

// New returns the defaults.
func New() *AppConfig {
	return &AppConfig{
		Port:             "8080",
		MetricsNamespace: "wildfire_analysis",
		HTTPTimeout:      30 * time.Second,
		UserAgent:        "wildfire-analysis/1.0",
		RefreshInterval:  6 * time.Hour,
		RefreshTimeout:   2 * time.Minute,
		StoreMaxHistory:  4,
		StoreMaxAge:      7 * 24 * time.Hour,

		ClimateDataset:       "climate",
		ClimateCSV:           "Wildfires/Output_Data/combined_climate_data.csv",
		ClimateDateField:     climate.ClimateCSVFields.Date,
		ClimateCategoryField: climate.ClimateCSVFields.Category,
		ClimateValueField:    climate.ClimateCSVFields.Value,

		OpenMeteoURL: providers.OpenMeteoClimateURL,
		NominatimURL: providers.NominatimURL,

		WildfireEnabled:    true,
		WildfireURL:        providers.USDAPerimetersURL,
		WildfireMinYear:    wildfire.DefaultMinYear,
		WildfireMaxPages:   20,
		WildfireDateField:  wildfire.DefaultAcreageFields.Date,
		WildfireValueField: wildfire.DefaultAcreageFields.Value,
	}
}

// Load layers defaults, an optional YAML file named by WFA_CONFIG, and WFA_*
// environment variables (lowest to highest precedence). A .env file, if
// present, is loaded into the environment first.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh_interval must be positive"))
	}
	if c.RefreshTimeout <= 0 {
		errs = append(errs, errors.New("refresh_timeout must be positive"))
	}
	if c.ClimateCSV != "" && (c.ClimateDateField == "" || c.ClimateValueField == "") {
		errs = append(errs, errors.New("climate_date_field and climate_value_field are required with climate_csv"))
	}
	if c.WildfireEnabled && (c.WildfireDateField == "" || c.WildfireValueField == "") {
		errs = append(errs, errors.New("wildfire_date_field and wildfire_value_field are required"))
	}
	return errors.Join(errs...)
}

// ClimateFields is the field mapping for the climate CSV dataset.
func (c *AppConfig) ClimateFields() climate.Fields {
	return climate.Fields{
		Date:            c.ClimateDateField,
		Category:        c.ClimateCategoryField,
		Value:           c.ClimateValueField,
		DefaultCategory: c.ClimateDefaultCat,
	}
}

// WildfireFields is the field mapping for the acreage index.
func (c *AppConfig) WildfireFields() climate.Fields {
	return climate.Fields{
		Date:     c.WildfireDateField,
		Category: c.WildfireCategoryField,
		Value:    c.WildfireValueField,
	}
}
