package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
)

// ErrMissingSetting is returned by Validate when a required setting is absent.
var ErrMissingSetting = errors.New("missing required setting")

// ErrInvalidSetting is returned by Validate when a setting is malformed.
var ErrInvalidSetting = errors.New("invalid setting")

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL               string   `validate:"required|fullUrl"`
	NotifyURL             string   `validate:"required"`
	LocationIDs           []string `validate:"required"`
	CheckFrequencyMinutes int      `validate:"required|min:1"`

	StateFile        string `validate:"required"`
	LocationsMapFile string `validate:"required"`
	FooterFile       string

	LogLevel string `validate:"required|in:trace,debug,info,warn,error"`
	LogFile  string
	Timezone string

	ChromeBin         string
	ScrapeTimeoutSec  int `validate:"min:1"`
	MaxRetries        int `validate:"min:1"`
	NotifyRateLimitMs int `validate:"min:0"`

	EventsCSVPath    string
	TrackingPostgres bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MetricsListen string

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// EnvFileLoaded reports whether a .env file was found by Load.
	EnvFileLoaded bool

	// malformed lists variables that were set but did not parse.
	malformed []string
}

// requiredEnv maps the required environment variables to their value getters.
var requiredEnv = []struct {
	key   string
	empty func(*Config) bool
}{
	{"RMV_URL", func(c *Config) bool { return c.BaseURL == "" }},
	{"NTFY_URL", func(c *Config) bool { return c.NotifyURL == "" }},
	{"LOCATIONS_TO_MONITOR", func(c *Config) bool { return len(c.LocationIDs) == 0 }},
	{"CHECK_FREQUENCY_MINUTES", func(c *Config) bool { return c.CheckFrequencyMinutes == 0 }},
}

// Load reads the .env file (if any) and returns a populated Config struct.
// An empty envFile means ".env" in the working directory.
func Load(envFile string) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	loaded := godotenv.Load(envFile) == nil

	var malformed []string
	envInt := func(key string, fallback int) int {
		n, ok := getEnvInt(key, fallback)
		if !ok {
			malformed = append(malformed, key)
		}
		return n
	}
	envBool := func(key string, fallback bool) bool {
		b, ok := getEnvBool(key, fallback)
		if !ok {
			malformed = append(malformed, key)
		}
		return b
	}

	c := &Config{
		BaseURL:               getEnv("RMV_URL", ""),
		NotifyURL:             getEnv("NTFY_URL", ""),
		LocationIDs:           splitIDs(getEnv("LOCATIONS_TO_MONITOR", "")),
		CheckFrequencyMinutes: envInt("CHECK_FREQUENCY_MINUTES", 0),

		StateFile:        getEnv("STATE_FILE", "state.json"),
		LocationsMapFile: getEnv("LOCATIONS_MAP_FILE", "locations_map.json"),
		FooterFile:       getEnv("APPOINTMENT_TEXT_FILE", "booking.md"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", "monitor.log"),
		Timezone: getEnv("TIMEZONE", ""),

		ChromeBin:         getEnv("CHROME_BIN", ""),
		ScrapeTimeoutSec:  envInt("SCRAPE_TIMEOUT_SEC", 90),
		MaxRetries:        envInt("MAX_RETRIES", 3),
		NotifyRateLimitMs: envInt("NOTIFY_RATE_LIMIT_MS", 500),

		EventsCSVPath:    getEnv("EVENTS_CSV_PATH", ""),
		TrackingPostgres: envBool("TRACKING_POSTGRES", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "monitor"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "appointments"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MetricsListen: getEnv("METRICS_LISTEN", ""),

		SMTPAddr:     getEnv("SMTP_ADDR", ""),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		EnvFileLoaded: loaded,
	}
	c.malformed = malformed
	return c
}

// Validate reports unparseable values first, then missing required settings,
// then values that fail the struct rules.
func (c *Config) Validate() error {
	if len(c.malformed) > 0 {
		return fmt.Errorf("%w: not a valid value: %s", ErrInvalidSetting, strings.Join(c.malformed, ", "))
	}

	var missing []string
	for _, r := range requiredEnv {
		if r.empty(c) {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("%w: %s", ErrInvalidSetting, v.Errors.One())
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: TIMEZONE %q: %v", ErrInvalidSetting, c.Timezone, err)
		}
	}
	return nil
}

// Location returns the configured time zone, defaulting to the local one.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CheckInterval returns the delay between two check cycles.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckFrequencyMinutes) * time.Minute
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt returns fallback when key is unset. ok is false when the value
// is set but not an integer.
func getEnvInt(key string, fallback int) (n int, ok bool) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback, false
	}
	return n, true
}

func getEnvBool(key string, fallback bool) (b bool, ok bool) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return fallback, false
	}
	return b, true
}
