package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every setting of the scraper. It is loaded once at startup and passed down explicitly.
type Config struct {
	Site              string        `mapstructure:"SITE" validate:"oneof=cnn bbc custom"`
	TargetURL         string        `mapstructure:"TARGET_URL" validate:"required"`
	ContainerSelector string        `mapstructure:"CONTAINER_SELECTOR" validate:"required"`
	HeadlineSelector  string        `mapstructure:"HEADLINE_SELECTOR"`
	LinkSelector      string        `mapstructure:"LINK_SELECTOR"`
	TimestampSelector string        `mapstructure:"TIMESTAMP_SELECTOR"`
	NextSelector      string        `mapstructure:"NEXT_SELECTOR"`
	Pages             int           `mapstructure:"PAGES" validate:"min=1"`
	HeadlinesPerPage  int           `mapstructure:"HEADLINES_PER_PAGE" validate:"min=1"`
	WaitTimeout       time.Duration `mapstructure:"WAIT_TIMEOUT" validate:"gt=0"`
	PollInterval      time.Duration `mapstructure:"POLL_INTERVAL" validate:"gt=0"`
	RetryAttempts     int           `mapstructure:"RETRY_ATTEMPTS" validate:"min=1"`
	RetryDelay        time.Duration `mapstructure:"RETRY_DELAY" validate:"gte=0"`
	ScrollTimes       int           `mapstructure:"SCROLL_TIMES" validate:"gte=0"`
	ScrollPause       time.Duration `mapstructure:"SCROLL_PAUSE" validate:"gte=0"`
	ValidateLinks     bool          `mapstructure:"VALIDATE_LINKS"`

	OutputDir      string   `mapstructure:"OUTPUT_DIR" validate:"required"`
	OutputBaseName string   `mapstructure:"OUTPUT_BASENAME" validate:"required"`
	ExportFormats  []string `mapstructure:"EXPORT_FORMATS" validate:"dive,oneof=csv json txt postgres"`

	LogFile  string `mapstructure:"LOG_FILE"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	BrowserDriver string        `mapstructure:"BROWSER_DRIVER" validate:"oneof=chrome static"`
	Headless      bool          `mapstructure:"HEADLESS"`
	UserAgent     string        `mapstructure:"USER_AGENT"`
	ActionTimeout time.Duration `mapstructure:"ACTION_TIMEOUT" validate:"gt=0"`

	EmailAddress     string        `mapstructure:"EMAIL_ADDRESS" validate:"required_with=NotifyEmail"`
	EmailPassword    string        `mapstructure:"EMAIL_PASSWORD" validate:"required_with=NotifyEmail"`
	SMTPServer       string        `mapstructure:"SMTP_SERVER" validate:"required_with=NotifyEmail"`
	SMTPPort         int           `mapstructure:"SMTP_PORT" validate:"min=1,max=65535"`
	SMTPTLSOptional  bool          `mapstructure:"SMTP_TLS_OPTIONAL"`
	NotifyEmail      string        `mapstructure:"NOTIFY_EMAIL"`
	NotifyAttempts   int           `mapstructure:"NOTIFY_ATTEMPTS" validate:"min=1"`
	NotifyRetryDelay time.Duration `mapstructure:"NOTIFY_RETRY_DELAY" validate:"gte=0"`

	PostgresURL   string        `mapstructure:"POSTGRES_URL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB" validate:"gte=0"`
	LinkCacheTTL  time.Duration `mapstructure:"LINK_CACHE_TTL" validate:"gte=0"`

	ServerPort  string `mapstructure:"SERVER_PORT"`
	Schedule    string `mapstructure:"SCHEDULE"`
	MetricsFile string `mapstructure:"METRICS_FILE"`
}

// sitePreset captures the layout of a known news site.
type sitePreset struct {
	url, container, headline, link, timestamp, next string
	scrollTimes                                     int
	validateLinks                                   bool
}

var presets = map[string]sitePreset{
	"cnn": {
		url:         "https://www.cnn.com",
		container:   ".container__headline",
		headline:    "a",
		link:        "a",
		timestamp:   "span.timestamp",
		scrollTimes: 3,
	},
	"bbc": {
		url:           "https://www.bbc.com/news",
		container:     "h3",
		link:          "a",
		next:          "a.pagination__next",
		validateLinks: true,
	},
}

// Load reads configuration from an optional .env file and the environment.
// overrides take precedence over both and usually come from command-line flags.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// The file is optional so that the scraper can be configured purely through the environment.
	_ = v.ReadInConfig()

	for key, value := range overrides {
		v.Set(key, value)
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Site = strings.ToLower(cfg.Site)
	cfg.ExportFormats = normalizeFormats(cfg.ExportFormats)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SITE", "bbc")
	preset := presets[strings.ToLower(v.GetString("SITE"))]

	v.SetDefault("TARGET_URL", preset.url)
	v.SetDefault("CONTAINER_SELECTOR", preset.container)
	v.SetDefault("HEADLINE_SELECTOR", preset.headline)
	v.SetDefault("LINK_SELECTOR", preset.link)
	v.SetDefault("TIMESTAMP_SELECTOR", preset.timestamp)
	v.SetDefault("NEXT_SELECTOR", preset.next)
	v.SetDefault("SCROLL_TIMES", preset.scrollTimes)
	v.SetDefault("VALIDATE_LINKS", preset.validateLinks)

	v.SetDefault("PAGES", 1)
	v.SetDefault("HEADLINES_PER_PAGE", 10)
	v.SetDefault("WAIT_TIMEOUT", 10*time.Second)
	v.SetDefault("POLL_INTERVAL", 500*time.Millisecond)
	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_DELAY", time.Second)
	v.SetDefault("SCROLL_PAUSE", 2*time.Second)

	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("OUTPUT_BASENAME", "headlines")
	v.SetDefault("EXPORT_FORMATS", []string{"csv", "json", "txt"})

	v.SetDefault("LOG_FILE", "scraping_log.txt")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("BROWSER_DRIVER", "chrome")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("USER_AGENT", "")
	v.SetDefault("ACTION_TIMEOUT", 15*time.Second)

	v.SetDefault("EMAIL_ADDRESS", "")
	v.SetDefault("EMAIL_PASSWORD", "")
	v.SetDefault("SMTP_SERVER", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TLS_OPTIONAL", false)
	v.SetDefault("NOTIFY_EMAIL", "")
	v.SetDefault("NOTIFY_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", 2*time.Second)

	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LINK_CACHE_TTL", 24*time.Hour)

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SCHEDULE", "")
	v.SetDefault("METRICS_FILE", "")
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	if slices.Contains(c.ExportFormats, "postgres") && c.PostgresURL == "" {
		return fmt.Errorf("config error: export format 'postgres' requires POSTGRES_URL")
	}
	return nil
}

func normalizeFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		for _, part := range strings.Split(f, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}
	return out
}
