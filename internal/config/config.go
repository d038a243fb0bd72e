package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"garoonsync/internal/caldav"
	"garoonsync/internal/export"
	"garoonsync/internal/garoon"
	"garoonsync/internal/syncer"
)

// ErrInvalidConfig is wrapped by every error Load returns for a missing or
// malformed setting.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	FormatCSV = "csv"
	FormatICS = "ics"
)

type Config struct {
	Garoon  garoon.Config
	Sync    SyncConfig
	Export  ExportConfig
	CalDAV  caldav.Config
	Metrics MetricsConfig
	Log     LogConfig
}

type SyncConfig struct {
	WindowDays     int
	OnInvalidEvent syncer.Policy
}

type ExportConfig struct {
	Output   string
	Format   string
	Location *time.Location
	Encoding export.Encoding
	Atomic   bool
}

type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

type LogConfig struct {
	Level string
}

// Load reads the configuration from the environment and an optional YAML
// file. An explicit path must exist; without one, garoonsync.yaml is looked
// up in the working directory and in $HOME/.config/garoonsync.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("garoonsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "garoonsync"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Garoon.BaseURL = v.GetString("garoon.base_url")
	cfg.Garoon.UserID = v.GetString("garoon.user_id")
	cfg.Garoon.Password = v.GetString("garoon.password")

	cfg.Sync.WindowDays = v.GetInt("sync.window_days")

	cfg.Export.Output = v.GetString("export.output")
	cfg.Export.Format = strings.ToLower(strings.TrimSpace(v.GetString("export.format")))
	cfg.Export.Atomic = v.GetBool("export.atomic")

	cfg.CalDAV.Endpoint = v.GetString("caldav.endpoint")
	cfg.CalDAV.Username = v.GetString("caldav.username")
	cfg.CalDAV.Password = v.GetString("caldav.password")
	cfg.CalDAV.CalendarName = v.GetString("caldav.calendar_name")
	cfg.CalDAV.CalendarPath = v.GetString("caldav.calendar_path")

	cfg.Metrics.PushgatewayURL = v.GetString("metrics.pushgateway_url")
	cfg.Metrics.Job = v.GetString("metrics.job")

	cfg.Log.Level = v.GetString("log.level")

	var err error
	if cfg.Sync.OnInvalidEvent, err = syncer.ParsePolicy(v.GetString("sync.on_invalid_event")); err != nil {
		return nil, fmt.Errorf("%w: sync.on_invalid_event: %w", ErrInvalidConfig, err)
	}
	if cfg.Export.Encoding, err = export.ParseEncoding(v.GetString("export.encoding")); err != nil {
		return nil, fmt.Errorf("%w: export.encoding: %w", ErrInvalidConfig, err)
	}
	if cfg.Export.Location, err = loadLocation(v.GetString("export.timezone")); err != nil {
		return nil, fmt.Errorf("%w: export.timezone: %w", ErrInvalidConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sync.window_days", syncer.DefaultWindowDays)
	v.SetDefault("sync.on_invalid_event", syncer.PolicyFail.String())
	v.SetDefault("export.output", "events.csv")
	v.SetDefault("export.format", FormatCSV)
	v.SetDefault("export.encoding", string(export.EncodingUTF8))
	v.SetDefault("export.atomic", false)
	v.SetDefault("metrics.job", "garoonsync")
	v.SetDefault("log.level", "info")

	// Keys without a default still need to be known to viper so that
	// AutomaticEnv resolves them.
	for _, key := range []string{
		"garoon.base_url", "garoon.user_id", "garoon.password",
		"export.timezone",
		"caldav.endpoint", "caldav.username", "caldav.password",
		"caldav.calendar_name", "caldav.calendar_path",
		"metrics.pushgateway_url",
	} {
		_ = v.BindEnv(key)
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func (c *Config) validate() error {
	var missing []string
	if c.Garoon.BaseURL == "" {
		missing = append(missing, "GAROON_BASE_URL")
	}
	if c.Garoon.UserID == "" {
		missing = append(missing, "GAROON_USER_ID")
	}
	if c.Garoon.Password == "" {
		missing = append(missing, "GAROON_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.Garoon.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: GAROON_BASE_URL must be an http(s) URL, got %q", ErrInvalidConfig, c.Garoon.BaseURL)
	}
	if err := ValidateWindowDays(c.Sync.WindowDays); err != nil {
		return fmt.Errorf("%w: SYNC_WINDOW_DAYS %w", ErrInvalidConfig, err)
	}
	if c.Export.Format != FormatCSV && c.Export.Format != FormatICS {
		return fmt.Errorf("%w: EXPORT_FORMAT must be %q or %q, got %q", ErrInvalidConfig, FormatCSV, FormatICS, c.Export.Format)
	}
	if c.Export.Output == "" {
		return fmt.Errorf("%w: EXPORT_OUTPUT is empty", ErrInvalidConfig)
	}
	return nil
}

// ValidateWindowDays checks a window length in days. Zero selects the default.
func ValidateWindowDays(days int) error {
	if days < 0 || days > syncer.MaxWindowDays {
		return fmt.Errorf("must be between 0 and %d, got %d", syncer.MaxWindowDays, days)
	}
	return nil
}

// ValidateCalDAV checks the settings the publish command needs.
func (c *Config) ValidateCalDAV() error {
	if c.CalDAV.Endpoint == "" {
		return fmt.Errorf("%w: missing CALDAV_ENDPOINT", ErrInvalidConfig)
	}
	if c.CalDAV.CalendarName == "" && c.CalDAV.CalendarPath == "" {
		return fmt.Errorf("%w: one of CALDAV_CALENDAR_NAME or CALDAV_CALENDAR_PATH is required", ErrInvalidConfig)
	}
	return nil
}
