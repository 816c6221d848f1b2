package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissing marks a required environment variable that is absent or blank.
// The wrapped message names the variable.
var ErrMissing = errors.New("missing required config")

const (
	SourceERP      = "erp"
	SourceDatabase = "db"
)

// DefaultAuthOrder is the login strategy preference used when the config file
// does not override it. The right order is environment-specific.
var DefaultAuthOrder = []string{"json", "form", "basic"}

type ERPConfig struct {
	LoginURL string
	DataURL  string
	Username string
	Password string
	// AuthOrder lists login strategies to try, in order.
	AuthOrder []string      `yaml:"auth_order"`
	Timeout   time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	DSN           string
	InventoryView string        `yaml:"inventory_view"`
	CatalogView   string        `yaml:"catalog_view"`
	Timezone      string        `yaml:"timezone"` // source-local calendar for the month label
	Timeout       time.Duration `yaml:"timeout"`
}

type DestinationConfig struct {
	URL        string
	ServiceKey string
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

type FilterConfig struct {
	Warehouses []string `yaml:"warehouses"` // allow-list of warehouse codes; empty = all
	Limit      int      `yaml:"limit"`      // cap on fetched rows; 0 = unlimited
}

type Config struct {
	Source      string            `yaml:"source"`
	ERP         ERPConfig         `yaml:"erp"`
	Database    DatabaseConfig    `yaml:"database"`
	Destination DestinationConfig `yaml:"destination"`
	Filters     FilterConfig      `yaml:"filters"`
}

// Load builds the run configuration. The optional YAML file supplies
// deployment-tunable knobs (auth strategy order, views, filters, timeouts);
// credentials and endpoints always come from the environment and a missing
// required value fails the run before any network call.
func Load(path string) (Config, error) {
	c := Config{
		ERP:      ERPConfig{AuthOrder: DefaultAuthOrder, Timeout: 30 * time.Second},
		Database: DatabaseConfig{InventoryView: "viewInventarioDisneylandia", CatalogView: "viewProductoListaPrecioDisneylandia", Timezone: "America/Bogota", Timeout: 15 * time.Second},
		Destination: DestinationConfig{
			BatchSize: 500,
			Timeout:   60 * time.Second,
		},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("SYNC_SOURCE")); v != "" {
		c.Source = v
	}
	if c.Source == "" {
		c.Source = SourceERP
	}
	if c.Source != SourceERP && c.Source != SourceDatabase {
		return Config{}, fmt.Errorf("SYNC_SOURCE must be %q or %q, got %q", SourceERP, SourceDatabase, c.Source)
	}

	var err error
	switch c.Source {
	case SourceERP:
		if c.ERP.LoginURL, err = required("ERP_LOGIN_URL"); err != nil {
			return Config{}, err
		}
		if c.ERP.DataURL, err = required("ERP_URL"); err != nil {
			return Config{}, err
		}
		if c.ERP.Username, err = required("ERP_USERNAME"); err != nil {
			return Config{}, err
		}
		if c.ERP.Password, err = required("ERP_PASSWORD"); err != nil {
			return Config{}, err
		}
	case SourceDatabase:
		if c.Database.DSN, err = required("DATABASE_URL"); err != nil {
			return Config{}, err
		}
	}

	if c.Destination.URL, err = required("SUPABASE_URL"); err != nil {
		return Config{}, err
	}
	if c.Destination.ServiceKey, err = required("SUPABASE_SERVICE_KEY"); err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(os.Getenv("WAREHOUSES")); v != "" {
		c.Filters.Warehouses = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("ROW_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("ROW_LIMIT must be a non-negative integer, got %q", v)
		}
		c.Filters.Limit = n
	}

	if len(c.ERP.AuthOrder) == 0 {
		c.ERP.AuthOrder = DefaultAuthOrder
	}
	if c.Destination.BatchSize <= 0 {
		c.Destination.BatchSize = 500
	}
	if c.ERP.Timeout <= 0 {
		c.ERP.Timeout = 30 * time.Second
	}
	if c.Database.Timeout <= 0 {
		c.Database.Timeout = 15 * time.Second
	}
	if c.Destination.Timeout <= 0 {
		c.Destination.Timeout = 60 * time.Second
	}
	return c, nil
}

func required(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissing, name)
	}
	return v, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
