package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Rotation RotationConfig
	Radar    RadarConfig
	Backfill BackfillConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RotationConfig carries the unit roster and week-generation defaults that
// the legacy tooling kept hardcoded in one-off scripts.
type RotationConfig struct {
	Units           []string
	DefaultFirstOut string
	LockLeadDays    int
	WeekStartDay    time.Weekday
}

// RadarConfig governs fragility radar evaluation and its report cache.
type RadarConfig struct {
	CacheTTL              time.Duration
	AllowNonMedicalDriver bool
}

// BackfillConfig describes the weekday driver-backfill rule applied by
// history imports. Weekend gaps are never auto-filled regardless of it.
type BackfillConfig struct {
	Enabled              bool
	WeekdayPlaceholderID string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Rotation = RotationConfig{
		Units:           splitAndTrim(v.GetString("ROTATION_UNITS")),
		DefaultFirstOut: v.GetString("ROTATION_DEFAULT_FIRST_OUT"),
		LockLeadDays:    v.GetInt("ROTATION_LOCK_LEAD_DAYS"),
		WeekStartDay:    parseWeekday(v.GetString("ROTATION_WEEK_START_DAY"), time.Thursday),
	}

	cfg.Radar = RadarConfig{
		CacheTTL:              parseDuration(v.GetString("RADAR_CACHE_TTL"), 5*time.Minute),
		AllowNonMedicalDriver: v.GetBool("RADAR_ALLOW_NONMEDICAL_DRIVER"),
	}

	cfg.Backfill = BackfillConfig{
		Enabled:              v.GetBool("BACKFILL_WEEKDAY_DRIVER"),
		WeekdayPlaceholderID: v.GetString("BACKFILL_WEEKDAY_PLACEHOLDER_ID"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "shiftcommander")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROTATION_UNITS", "AMB120,AMB121,AMB131")
	v.SetDefault("ROTATION_DEFAULT_FIRST_OUT", "AMB120")
	v.SetDefault("ROTATION_LOCK_LEAD_DAYS", 28)
	v.SetDefault("ROTATION_WEEK_START_DAY", "THURSDAY")

	v.SetDefault("RADAR_CACHE_TTL", "5m")
	v.SetDefault("RADAR_ALLOW_NONMEDICAL_DRIVER", false)

	v.SetDefault("BACKFILL_WEEKDAY_DRIVER", false)
	v.SetDefault("BACKFILL_WEEKDAY_PLACEHOLDER_ID", "PH_FIRE_DIVISION")
}

var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

func parseWeekday(raw string, fallback time.Weekday) time.Weekday {
	if day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return day
	}
	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
