package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Generator policies.
const (
	PolicyLectureLab = "lecture_lab"
	PolicyPattern    = "pattern"
)

// Reschedule conflict check modes.
const (
	RescheduleCheckRoom = "room"
	RescheduleCheckFull = "full"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Snapshots SnapshotConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimeSlot is a configured "HH:MM" start/end pair.
type TimeSlot struct {
	Start string
	End   string
}

// SchedulerConfig governs the timetable generator, exam planner and reschedule engine.
type SchedulerConfig struct {
	Enabled           bool
	Policy            string
	LecturesPerCourse int
	LabBlocks         bool
	Seed              int64
	Days              []string
	TimeSlots         []TimeSlot
	RescheduleCheck   string
	ExamWindowDays    int
}

// SnapshotConfig tunes caching of the active approved snapshot.
type SnapshotConfig struct {
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET"), Issuer: v.GetString("JWT_ISSUER")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	slots, err := parseTimeSlots(v.GetString("SCHEDULER_TIME_SLOTS"))
	if err != nil {
		return nil, err
	}

	policy := strings.ToLower(v.GetString("SCHEDULER_POLICY"))
	if policy != PolicyPattern {
		policy = PolicyLectureLab
	}
	check := strings.ToLower(v.GetString("SCHEDULER_RESCHEDULE_CHECK"))
	if check != RescheduleCheckFull {
		check = RescheduleCheckRoom
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		Policy:            policy,
		LecturesPerCourse: v.GetInt("SCHEDULER_LECTURES_PER_COURSE"),
		LabBlocks:         v.GetBool("SCHEDULER_LAB_BLOCKS"),
		Seed:              v.GetInt64("SCHEDULER_SEED"),
		Days:              splitAndTrim(v.GetString("SCHEDULER_DAYS")),
		TimeSlots:         slots,
		RescheduleCheck:   check,
		ExamWindowDays:    v.GetInt("EXAM_WINDOW_DAYS"),
	}

	cfg.Snapshots = SnapshotConfig{
		CacheTTL: parseDuration(v.GetString("SNAPSHOT_CACHE_TTL"), 10*time.Minute),
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
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_POLICY", PolicyLectureLab)
	v.SetDefault("SCHEDULER_LECTURES_PER_COURSE", 3)
	v.SetDefault("SCHEDULER_LAB_BLOCKS", true)
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_DAYS", "Monday,Tuesday,Wednesday,Thursday,Friday")
	v.SetDefault("SCHEDULER_TIME_SLOTS", "08:30-09:30,09:45-10:45,11:00-12:00,12:15-13:15,14:00-15:00,15:15-16:15,16:30-17:30")
	v.SetDefault("SCHEDULER_RESCHEDULE_CHECK", RescheduleCheckRoom)
	v.SetDefault("EXAM_WINDOW_DAYS", 5)

	v.SetDefault("SNAPSHOT_CACHE_TTL", "10m")
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

// parseTimeSlots reads "08:30-09:30,09:45-10:45" into ordered pairs. Clock syntax is
// validated later by the scheduler so the error surfaces as malformed input.
func parseTimeSlots(raw string) ([]TimeSlot, error) {
	parts := splitAndTrim(raw)
	slots := make([]TimeSlot, 0, len(parts))
	for _, part := range parts {
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid SCHEDULER_TIME_SLOTS entry %q", part)
		}
		slots = append(slots, TimeSlot{Start: strings.TrimSpace(bounds[0]), End: strings.TrimSpace(bounds[1])})
	}
	return slots, nil
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
