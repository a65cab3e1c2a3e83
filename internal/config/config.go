// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Rewards     RewardsConfig     `mapstructure:"rewards"`
	Levels      LevelsConfig      `mapstructure:"levels"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Mattermost  MattermostConfig  `mapstructure:"mattermost"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	// Timezone drives calendar-day comparisons for the daily login reward.
	Timezone string `mapstructure:"timezone"`
}

// MattermostConfig contains Mattermost webhook settings for reset announcements.
type MattermostConfig struct {
	WebhookURL        string  `mapstructure:"webhook_url"`
	Channel           string  `mapstructure:"channel"`
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN returns the libpq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection URL form used by golang-migrate.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SchedulerConfig contains the period reset schedules.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Weekly  string `mapstructure:"weekly"`  // cron expression, default Monday 00:00
	Monthly string `mapstructure:"monthly"` // cron expression, default 1st 00:00
	// Timezone is used both for cron firing and for period boundaries.
	Timezone string        `mapstructure:"timezone"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// RewardsConfig is the reward policy. Defaults match the platform's published rules.
type RewardsConfig struct {
	ChallengeJoinClubCoins    int64 `mapstructure:"challenge_join_club_coins"`
	ChallengeCreateClubCoins  int64 `mapstructure:"challenge_create_club_coins"`
	ChallengeCreateClubPoints int64 `mapstructure:"challenge_create_club_points"`
	ChallengePassMarks        int   `mapstructure:"challenge_pass_marks"`

	EventGuestPoints       int64         `mapstructure:"event_guest_points"`
	EventCompetitionPoints int64         `mapstructure:"event_competition_points"`
	EventParticipantPoints int64         `mapstructure:"event_participant_points"`
	EventRegistrantXP      int64         `mapstructure:"event_registrant_xp"`
	EventWinnerXP          []int64       `mapstructure:"event_winner_xp"` // index 0 = 1st place
	UnannouncedWindow      time.Duration `mapstructure:"unannounced_window"`
	UnannouncedFactor      float64       `mapstructure:"unannounced_factor"`
	CollaboratorShare      float64       `mapstructure:"collaborator_share"`

	TaskApprovalClubPoints    int64 `mapstructure:"task_approval_club_points"`
	DailyLoginXP              int64 `mapstructure:"daily_login_xp"`
	ProjectApprovalClubPoints int64 `mapstructure:"project_approval_club_points"`
}

// LevelsConfig holds the XP threshold table. thresholds[i] is the XP needed for level i+1.
type LevelsConfig struct {
	Thresholds []int64 `mapstructure:"thresholds"`
}

// LeaderboardConfig bounds leaderboard page sizes.
type LeaderboardConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultLevelThresholds is the stock level table (15 levels).
var DefaultLevelThresholds = []int64{
	0, 100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500, 10000, 13000, 16500, 20500, 25000,
}

// DefaultRewards returns the stock reward policy.
func DefaultRewards() RewardsConfig {
	return RewardsConfig{
		ChallengeJoinClubCoins:    2,
		ChallengeCreateClubCoins:  100,
		ChallengeCreateClubPoints: 50,
		ChallengePassMarks:        40,
		EventGuestPoints:          15,
		EventCompetitionPoints:    25,
		EventParticipantPoints:    10,
		EventRegistrantXP:         100,
		EventWinnerXP:             []int64{50, 40, 25},
		UnannouncedWindow:         5 * time.Minute,
		UnannouncedFactor:         0.5,
		CollaboratorShare:         0.75,
		TaskApprovalClubPoints:    5,
		DailyLoginXP:              20,
		ProjectApprovalClubPoints: 10,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.timezone", "UTC")

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.weekly", "0 0 * * 1")
	v.SetDefault("scheduler.monthly", "0 0 1 * *")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.lock_ttl", "30m")

	r := DefaultRewards()
	v.SetDefault("rewards.challenge_join_club_coins", r.ChallengeJoinClubCoins)
	v.SetDefault("rewards.challenge_create_club_coins", r.ChallengeCreateClubCoins)
	v.SetDefault("rewards.challenge_create_club_points", r.ChallengeCreateClubPoints)
	v.SetDefault("rewards.challenge_pass_marks", r.ChallengePassMarks)
	v.SetDefault("rewards.event_guest_points", r.EventGuestPoints)
	v.SetDefault("rewards.event_competition_points", r.EventCompetitionPoints)
	v.SetDefault("rewards.event_participant_points", r.EventParticipantPoints)
	v.SetDefault("rewards.event_registrant_xp", r.EventRegistrantXP)
	v.SetDefault("rewards.event_winner_xp", r.EventWinnerXP)
	v.SetDefault("rewards.unannounced_window", r.UnannouncedWindow.String())
	v.SetDefault("rewards.unannounced_factor", r.UnannouncedFactor)
	v.SetDefault("rewards.collaborator_share", r.CollaboratorShare)
	v.SetDefault("rewards.task_approval_club_points", r.TaskApprovalClubPoints)
	v.SetDefault("rewards.daily_login_xp", r.DailyLoginXP)
	v.SetDefault("rewards.project_approval_club_points", r.ProjectApprovalClubPoints)

	v.SetDefault("levels.thresholds", DefaultLevelThresholds)
	v.SetDefault("leaderboard.default_limit", 20)
	v.SetDefault("leaderboard.max_limit", 200)
	v.SetDefault("mattermost.requests_per_second", 1)
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/campus-rewards/")
	}

	// Explicit bindings for 12-factor deployments
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	_ = v.BindEnv("server.timezone", "SERVER_TIMEZONE")

	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	_ = v.BindEnv("mattermost.webhook_url", "MATTERMOST_WEBHOOK_URL")
	_ = v.BindEnv("mattermost.channel", "MATTERMOST_CHANNEL")
	_ = v.BindEnv("mattermost.enabled", "MATTERMOST_ENABLED")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.weekly", "SCHEDULER_WEEKLY")
	_ = v.BindEnv("scheduler.monthly", "SCHEDULER_MONTHLY")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if err := c.Levels.Validate(); err != nil {
		return err
	}
	if err := c.Rewards.Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone %q: %w", c.Server.Timezone, err)
	}
	if c.Mattermost.Enabled && c.Mattermost.WebhookURL == "" {
		return fmt.Errorf("mattermost.webhook_url is required when mattermost is enabled")
	}
	return nil
}

// Validate checks that the level table starts at zero and is strictly increasing.
func (c *LevelsConfig) Validate() error {
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("levels.thresholds must not be empty")
	}
	if c.Thresholds[0] != 0 {
		return fmt.Errorf("levels.thresholds must start at 0, got %d", c.Thresholds[0])
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i] <= c.Thresholds[i-1] {
			return fmt.Errorf("levels.thresholds must be strictly increasing (index %d)", i)
		}
	}
	return nil
}

// Validate rejects negative amounts and out-of-range ratios.
func (c *RewardsConfig) Validate() error {
	amounts := map[string]int64{
		"challenge_join_club_coins":    c.ChallengeJoinClubCoins,
		"challenge_create_club_coins":  c.ChallengeCreateClubCoins,
		"challenge_create_club_points": c.ChallengeCreateClubPoints,
		"event_guest_points":           c.EventGuestPoints,
		"event_competition_points":     c.EventCompetitionPoints,
		"event_participant_points":     c.EventParticipantPoints,
		"event_registrant_xp":          c.EventRegistrantXP,
		"task_approval_club_points":    c.TaskApprovalClubPoints,
		"daily_login_xp":               c.DailyLoginXP,
		"project_approval_club_points": c.ProjectApprovalClubPoints,
	}
	for name, amount := range amounts {
		if amount < 0 {
			return fmt.Errorf("rewards.%s must not be negative", name)
		}
	}
	for i, xp := range c.EventWinnerXP {
		if xp < 0 {
			return fmt.Errorf("rewards.event_winner_xp[%d] must not be negative", i)
		}
	}
	if c.ChallengePassMarks < 0 || c.ChallengePassMarks > 100 {
		return fmt.Errorf("rewards.challenge_pass_marks must be within [0,100]")
	}
	if c.UnannouncedFactor < 0 || c.UnannouncedFactor > 1 {
		return fmt.Errorf("rewards.unannounced_factor must be within [0,1]")
	}
	if c.CollaboratorShare < 0 || c.CollaboratorShare > 1 {
		return fmt.Errorf("rewards.collaborator_share must be within [0,1]")
	}
	return nil
}

// GetLocation returns the scheduler timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GetLocation returns the server timezone used for calendar-day logic.
func (c *ServerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
