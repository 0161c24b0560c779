package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	BetBurger BetBurgerConfig `yaml:"betburger"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Notifier  NotifierConfig  `yaml:"notifier"`

	// BookmakerURLs maps bookmaker_id to a URL template containing the
	// {bookmaker_event_link} placeholder.
	BookmakerURLs map[int]string `yaml:"bookmaker_urls"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type BetBurgerConfig struct {
	BaseURL      string `yaml:"base_url"`
	EntityIDsURL string `yaml:"entity_ids_url"`
	Token        string `yaml:"token"`
	FilterID     string `yaml:"filter_id"`
	PerPage      int    `yaml:"per_page"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// ChatMapping routes each sport_id to a destination channel. Sports
	// without a mapping are not dispatched.
	ChatMapping map[int]int64 `yaml:"chat_mapping"`
	// SportEmoji decorates messages per sport (optional).
	SportEmoji map[int]string `yaml:"sport_emoji"`
}

type NotifierConfig struct {
	Interval        string  `yaml:"interval"`         // polling interval, e.g. "60s"
	MinOddsFactor   float64 `yaml:"min_odds_factor"`  // min_koef = koef * factor
	Timezone        string  `yaml:"timezone"`         // display timezone for match times
	MessageTemplate string  `yaml:"message_template"` // overrides the default template
	Pacing          string  `yaml:"pacing"`           // delay between consecutive sends
	MaxRate         int     `yaml:"max_rate"`         // sends allowed per rate interval
	RateInterval    string  `yaml:"rate_interval"`    // fixed rate-limit window
	RetryAttempts   int     `yaml:"retry_attempts"`   // upstream fetch attempts
	RetryDelay      string  `yaml:"retry_delay"`      // delay between fetch attempts
	SendBackoff     string  `yaml:"send_backoff"`     // initial per-message retry backoff
}

const (
	defaultBaseURL       = "https://rest-api-pr.betburger.com"
	defaultEntityIDsURL  = "https://www.betburger.com/api/entity_ids"
	defaultPerPage       = 500
	defaultMinOddsFactor = 0.874
	defaultTimezone      = "Europe/Stockholm"
	defaultMaxRate       = 20
	defaultRetryAttempts = 3
)

// DefaultMessageTemplate is the channel message layout. Placeholders are
// filled by the formatter.
const DefaultMessageTemplate = `{flag} {league_name}

{sport_emoji} {event_name}

🎲 Bets
{bets}

🔐 Lägsta spelbara odds {min_odds}

🕰️  {match_time}

🌐 {bet_url}`

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.BetBurger.BaseURL == "" {
		c.BetBurger.BaseURL = defaultBaseURL
	}
	if c.BetBurger.EntityIDsURL == "" {
		c.BetBurger.EntityIDsURL = defaultEntityIDsURL
	}
	if c.BetBurger.PerPage <= 0 {
		c.BetBurger.PerPage = defaultPerPage
	}
	if c.Notifier.Interval == "" {
		c.Notifier.Interval = "60s"
	}
	if c.Notifier.MinOddsFactor <= 0 {
		c.Notifier.MinOddsFactor = defaultMinOddsFactor
	}
	if c.Notifier.Timezone == "" {
		c.Notifier.Timezone = defaultTimezone
	}
	if c.Notifier.MessageTemplate == "" {
		c.Notifier.MessageTemplate = DefaultMessageTemplate
	}
	if c.Notifier.Pacing == "" {
		c.Notifier.Pacing = "3s"
	}
	if c.Notifier.MaxRate <= 0 {
		c.Notifier.MaxRate = defaultMaxRate
	}
	if c.Notifier.RateInterval == "" {
		c.Notifier.RateInterval = "60s"
	}
	if c.Notifier.RetryAttempts <= 0 {
		c.Notifier.RetryAttempts = defaultRetryAttempts
	}
	if c.Notifier.RetryDelay == "" {
		c.Notifier.RetryDelay = "2s"
	}
	if c.Notifier.SendBackoff == "" {
		c.Notifier.SendBackoff = "1s"
	}
}

// ParseDuration parses one of the config duration strings, falling back to
// the given default when the value is empty or malformed.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
