package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port              string        `env:"APP_PORT" envDefault:"8080"`
	DBDriver          string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN             string        `env:"DB_DSN" envDefault:"meet_vote.db"`
	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer         string        `env:"JWT_ISSUER"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://127.0.0.1:3000" envSeparator:","`
	VoteRatePerMinute int           `env:"VOTE_RATE_PER_MINUTE" envDefault:"10"`
	VoteBurst         int           `env:"VOTE_BURST" envDefault:"3"`
	AutoMigrate       bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"text"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Database holds the storage settings, for tools that never serve HTTP.
type Database struct {
	Driver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN       string `env:"DB_DSN" envDefault:"meet_vote.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func LoadDatabase() (Database, error) {
	_ = godotenv.Load()

	var db Database
	if err := env.Parse(&db); err != nil {
		return Database{}, fmt.Errorf("parse env: %w", err)
	}
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	if err := validateDatabase(db.Driver, db.DSN); err != nil {
		return Database{}, err
	}
	return db, nil
}

func validateDatabase(driver, dsn string) error {
	switch driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}

func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if err := validateDatabase(c.DBDriver, c.DBDSN); err != nil {
		return err
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.VoteRatePerMinute <= 0 || c.VoteBurst <= 0 {
		return fmt.Errorf("VOTE_RATE_PER_MINUTE and VOTE_BURST must be positive")
	}

	origins := c.CORSOrigins[:0]
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
	return nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return newLogger(w, c.LogLevel, c.LogFormat)
}

func (d Database) Logger(w io.Writer) *slog.Logger {
	return newLogger(w, d.LogLevel, d.LogFormat)
}

func newLogger(w io.Writer, levelName, format string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
