package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dumpster-booking/internal/email"
)

type CalendarConfig struct {
	// google or memory
	Backend         string            `mapstructure:"backend"`
	Credentials     string            `mapstructure:"credentials"`      // Service account JSON
	CredentialsFile string            `mapstructure:"credentials_file"` // Path to service account JSON
	IDs             map[string]string `mapstructure:"ids"`              // Tier number -> calendar ID
}

type InventoryConfig struct {
	File string         `mapstructure:"file"` // Optional YAML override
	Caps map[string]int `mapstructure:"caps"` // Tier number -> concurrent units
}

type BookingConfig struct {
	OverageFee int `mapstructure:"overage_fee"` // Flat fee in dollars for rentals over the standard period
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Store    string        `mapstructure:"store"` // memory, sql or redis
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type Config struct {
	// Secret key for signing approval tokens. Must be set in production.
	Secret string `mapstructure:"secret"`
	// Lifetime of approval links
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	LogLevel string        `mapstructure:"log_level"`

	Listen string `mapstructure:"listen"`
	// Public URL of the site, used to build approval links in emails.
	SiteURL string `mapstructure:"site_url"`
	// Reference timezone for the booking horizon.
	TimeZone       string   `mapstructure:"timezone"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Booking   BookingConfig   `mapstructure:"booking"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	Storage Storage `mapstructure:"storage"`

	Email email.Config `mapstructure:"email"`
}

// Legacy environment names still set by existing deployments.
var envAliases = map[string][]string{
	"secret":                    {"SECRET", "APPROVE_TOKEN_SECRET"},
	"site_url":                  {"SITE_URL"},
	"calendar.credentials":      {"CALENDAR_CREDENTIALS", "GOOGLE_SERVICE_ACCOUNT_JSON"},
	"calendar.credentials_file": {"CALENDAR_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
	"calendar.ids.20":           {"CALENDAR_IDS_20", "GCAL_20_ID"},
	"calendar.ids.30":           {"CALENDAR_IDS_30", "GCAL_30_ID"},
	"calendar.ids.40":           {"CALENDAR_IDS_40", "GCAL_40_ID"},
	"email.password":            {"EMAIL_PASSWORD", "RESEND_API_KEY"},
	"email.from":                {"EMAIL_FROM"},
	"email.operator":            {"EMAIL_OPERATOR", "OWNER_NOTIFY_EMAIL"},
}

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from the config file and environment variables.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")

	for _, path := range configFile {
		if path != "" {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("unable to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil && cfg.Storage.SQLite.Path != "" {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("SECRET configuration variable is required in production")
		}
		slog.Warn("Secret is not set, using a random one. Approval links will not survive a restart.")
		cfg.Secret = randomSecret()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}

	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("site_url must be an absolute URL, got %q", c.SiteURL))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}

	switch c.Calendar.Backend {
	case "google":
		for _, tier := range []string{"20", "30", "40"} {
			if c.Calendar.IDs[tier] == "" {
				errs = append(errs, fmt.Errorf("calendar.ids.%s is required for the google backend", tier))
			}
		}
		if c.Calendar.Credentials == "" && c.Calendar.CredentialsFile == "" {
			errs = append(errs, errors.New("calendar.credentials or calendar.credentials_file is required for the google backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown calendar backend %q", c.Calendar.Backend))
	}

	switch c.Email.Backend {
	case "smtp":
		if c.Email.Host == "" {
			errs = append(errs, errors.New("email.host is required for the smtp backend"))
		}
	case "log", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown email backend %q", c.Email.Backend))
	}
	if c.Email.From == "" {
		errs = append(errs, errors.New("email.from is required"))
	}
	if c.Email.Operator == "" {
		errs = append(errs, errors.New("email.operator is required"))
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.requests and ratelimit.window must be positive"))
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	case "sql":
		if c.Storage.SQLite == nil || c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.local.path is required for the sql rate limit store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit store %q", c.RateLimit.Store))
	}

	if c.Booking.OverageFee < 0 {
		errs = append(errs, errors.New("booking.overage_fee must not be negative"))
	}

	return errors.Join(errs...)
}

// Location returns the reference timezone used for "today".
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}
