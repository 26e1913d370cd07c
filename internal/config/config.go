package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"resavox/internal/database"
)

type Config struct {
	Server struct {
		Port           int `yaml:"port"`
		RequestTimeout int `yaml:"request_timeout_seconds"`
	} `yaml:"server"`

	Database struct {
		Path   string                `yaml:"path"`
		Backup database.BackupConfig `yaml:"backup"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	SMS struct {
		Enabled    bool    `yaml:"enabled"`
		BaseURL    string  `yaml:"base_url"`
		APIKey     string  `yaml:"api_key"`
		Sender     string  `yaml:"sender"`
		RatePerSec float64 `yaml:"rate_per_sec"`
		Burst      int     `yaml:"burst"`
		CancelLink string  `yaml:"cancel_link_base"` // token is appended
	} `yaml:"sms"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`

	Reports struct {
		Enabled       bool   `yaml:"enabled"`
		OutputDir     string `yaml:"output_dir"`
		IntervalHours int    `yaml:"interval_hours"`
		Sheets        struct {
			Enabled         bool   `yaml:"enabled"`
			CredentialsFile string `yaml:"credentials_file"`
			SpreadsheetID   string `yaml:"spreadsheet_id"`
		} `yaml:"sheets"`
	} `yaml:"reports"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		LargePartyThreshold int `yaml:"large_party_threshold"`
		MaxFailedAttempts   int `yaml:"max_failed_attempts"`
		AlternativeScanDays int `yaml:"alternative_scan_days"`
	} `yaml:"booking"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/resavox.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RequestTimeout bounds a whole tool invocation. The default stays well
// under the voice platform's own response-wait ceiling.
func (c *Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// LargePartyThreshold is the party size above which bookings are always
// routed to a human.
func (c *Config) LargePartyThreshold() int {
	if c.Booking.LargePartyThreshold <= 0 {
		return 8
	}
	return c.Booking.LargePartyThreshold
}

// MaxFailedAttempts is the per-call failure count at which the agent
// should offer a transfer.
func (c *Config) MaxFailedAttempts() int {
	if c.Booking.MaxFailedAttempts <= 0 {
		return 3
	}
	return c.Booking.MaxFailedAttempts
}

// AlternativeScanDays is how far ahead the resolver searches for
// alternative slots.
func (c *Config) AlternativeScanDays() int {
	if c.Booking.AlternativeScanDays <= 0 {
		return 3
	}
	return c.Booking.AlternativeScanDays
}

// ReportInterval is the pause between scheduled reservation exports.
func (c *Config) ReportInterval() time.Duration {
	if c.Reports.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reports.IntervalHours) * time.Hour
}
