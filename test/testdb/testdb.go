// Package testdb opens throwaway SQLite databases with the full schema for service tests.
package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
)

// New returns an in-memory database, migrated and closed at test cleanup.
func New(t *testing.T) *repository.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")

	wrapped := &repository.DB{DB: db}
	require.NoError(t, wrapped.AutoMigrate(), "failed to migrate test database")
	t.Cleanup(func() { _ = wrapped.Close() })

	return wrapped
}

// User inserts a student with the given college and balances.
func User(t *testing.T, db *repository.DB, username, college string, points, totalXP, weeklyXP int64) *models.User {
	t.Helper()

	u := &models.User{
		Username:      username,
		Email:         username + "@campus.test",
		College:       college,
		Role:          models.RoleStudent,
		Points:        points,
		TotalEarnedXP: totalXP,
		WeeklyXP:      weeklyXP,
		Level:         1,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Club inserts a club with the given college and balances.
func Club(t *testing.T, db *repository.DB, name, college string, points, monthly int64) *models.Club {
	t.Helper()

	c := &models.Club{Name: name, College: college, Points: points, MonthlyPoints: monthly}
	require.NoError(t, db.Create(c).Error)
	return c
}

// ReloadUser reads a user back from the database.
func ReloadUser(t *testing.T, db *repository.DB, id uint) *models.User {
	t.Helper()

	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}

// ReloadClub reads a club back from the database.
func ReloadClub(t *testing.T, db *repository.DB, id uint) *models.Club {
	t.Helper()

	var c models.Club
	require.NoError(t, db.First(&c, id).Error)
	return &c
}

// Ledger returns every ledger row of a subject in insertion order.
func Ledger(t *testing.T, db *repository.DB, subject models.SubjectType, id uint) []models.LedgerEntry {
	t.Helper()

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("subject_type = ? AND subject_id = ?", subject, id).Order("id ASC").Find(&entries).Error)
	return entries
}

// Activity returns a user's activity row for one reference.
func Activity(t *testing.T, db *repository.DB, userID uint, kind string, refID uint) *models.Activity {
	t.Helper()

	var a models.Activity
	require.NoError(t, db.Where("user_id = ? AND kind = ? AND ref_id = ?", userID, kind, refID).First(&a).Error)
	return &a
}
