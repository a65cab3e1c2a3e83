// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Repository-level errors. Services translate them into domain errors.
var (
	ErrNotFound           = errors.New("record not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrDuplicate          = errors.New("duplicate record")
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	var gormLogLevel gormlogger.LogLevel
	switch log.GetLogger().GetLevel() {
	case 0: // debug
		gormLogLevel = gormlogger.Info
	default:
		gormLogLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// AllModels lists every persisted model, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserSkill{},
		&models.UserBadge{},
		&models.Notification{},
		&models.Club{},
		&models.ClubMember{},
		&models.ClubAchievement{},
		&models.LedgerEntry{},
		&models.Event{},
		&models.EventRegistration{},
		&models.EventTeamMember{},
		&models.EventWinner{},
		&models.EventCollaborator{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.ChallengeTeam{},
		&models.ChallengeSubmission{},
		&models.Activity{},
		&models.Task{},
		&models.TaskSubmission{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.Project{},
		&models.ProjectMember{},
		&models.PeriodRun{},
	}
}

// AutoMigrate runs GORM auto-migration for all models. Production schemas are
// managed by Migrate; this is used by development setups and tests.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(AllModels()...)
}

// Transaction runs fn inside a database transaction. Nested calls use savepoints.
func (db *DB) Transaction(ctx context.Context, fn func(tx *DB) error) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{tx})
	})
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// translate maps GORM errors onto repository errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
