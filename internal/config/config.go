package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes a single external iCalendar feed (a platform the
// property is listed on).
type FeedConfig struct {
	// URL is the ICS export endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for block tagging and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SMTPConfig holds the outgoing mail settings for guest notifications.
// Password may be left empty in the file and supplied via the
// CHALETD_SMTP_PASSWORD environment variable instead.
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password,omitempty" json:"-"`
	Sender   string `yaml:"sender" json:"sender"`
}

// EstablishmentConfig carries property details substituted into guest
// messages.
type EstablishmentConfig struct {
	Name      string `yaml:"name" json:"name"`
	DoorCode  string `yaml:"door_code" json:"-"`
	ReviewURL string `yaml:"review_url" json:"review_url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone in which "today" is evaluated and cron
	// schedules fire (e.g. "Europe/Paris").
	Timezone string `yaml:"timezone" json:"timezone"`

	// NotifyCron is the cron schedule for the daily notification pass.
	NotifyCron string `yaml:"notify_cron" json:"notify_cron"`

	// RefreshCron is the cron schedule for the availability refresh.
	RefreshCron string `yaml:"refresh_cron" json:"refresh_cron"`

	// HorizonDays bounds how far ahead recurring feed events are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// FetchTimeoutSeconds bounds each individual feed fetch.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// DataDir holds reservations.json and bookings.json.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Feeds is the list of subscribed calendar feeds.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	SMTP          SMTPConfig          `yaml:"smtp" json:"smtp"`
	Establishment EstablishmentConfig `yaml:"establishment" json:"establishment"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:4000",
		Timezone:            "Europe/Paris",
		NotifyCron:          "0 8 * * *",
		RefreshCron:         "0 * * * *",
		HorizonDays:         365,
		FetchTimeoutSeconds: 15,
		DataDir:             "./data",
		Feeds:               []FeedConfig{},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 465,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:4000"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Paris"
	}
	if c.NotifyCron == "" {
		c.NotifyCron = "0 8 * * *"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 365
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 15
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = 465
	}
	// Secrets may come from the environment rather than the file.
	if c.SMTP.Password == "" {
		c.SMTP.Password = os.Getenv("CHALETD_SMTP_PASSWORD")
	}
	if c.SMTP.Username == "" {
		c.SMTP.Username = os.Getenv("CHALETD_SMTP_USERNAME")
	}
}

// ReservationsPath returns the reservation store file under DataDir.
func (c *Config) ReservationsPath() string {
	return filepath.Join(c.DataDir, "reservations.json")
}

// BookingsPath returns the local booking store file under DataDir.
func (c *Config) BookingsPath() string {
	return filepath.Join(c.DataDir, "bookings.json")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config (0600) after
//     creating the parent directory, and return the defaults.
//   - Otherwise unmarshal and normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".chaletd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
