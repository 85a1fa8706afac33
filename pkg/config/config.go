// Package config loads the bot configuration from the environment.
package config

import (
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pkg/errors"
)

type Config struct {
	// Sessions lists the prefixes of the bot sessions to start. Prefix B reads
	// BTOKEN and BCLIENT_ID.
	Sessions []string `env:"BOT_SESSIONS" envDefault:"B" envSeparator:","`

	TimezoneTable string `env:"TIMEZONE_TABLE" envDefault:"timezones.csv"`

	Database  string `env:"DB_NAME" envDefault:"brianbot"`
	DBAddress string `env:"DB_ADDRESS" envDefault:"localhost"`
	DBPort    string `env:"DB_PORT" envDefault:"5432"`

	RedisURL   string `env:"REDIS_URL"`
	StatusAddr string `env:"STATUS_ADDR"`
	FeedURL    string `env:"RATE_FEED_URL"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"BRIANBOT_ENVIRONMENT" envDefault:"DEV"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Session holds the credentials of a single bot user.
type Session struct {
	Prefix   string
	Token    string `env:"TOKEN,required"`
	ClientID string `env:"CLIENT_ID,required"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return cfg, nil
}

// LoadSession reads the session variables under prefix.
func LoadSession(prefix string) (Session, error) {
	s := Session{Prefix: prefix}
	if err := env.ParseWithOptions(&s, env.Options{Prefix: prefix}); err != nil {
		return s, errors.Wrapf(err, "parsing session %s", prefix)
	}
	return s, nil
}

// LoadSessions reads every session named in cfg, skipping blank prefixes.
func (c *Config) LoadSessions() ([]Session, error) {
	var sessions []Session
	for _, prefix := range c.Sessions {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		s, err := LoadSession(prefix)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if len(sessions) == 0 {
		return nil, errors.New("no bot sessions configured")
	}
	return sessions, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "PROD"
}

func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (s Session) ApplicationID() (snowflake.ID, error) {
	id, err := snowflake.Parse(s.ClientID)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %sCLIENT_ID", s.Prefix)
	}
	return id, nil
}
