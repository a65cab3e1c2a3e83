package repository

import (
	"context"
	"fmt"

	"github.com/aimd54/campus-rewards/internal/models"
)

// PeriodRepository records completed reset runs.
type PeriodRepository struct {
	db *DB
}

// NewPeriodRepository creates a new period repository.
func NewPeriodRepository(db *DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *PeriodRepository) WithTx(tx *DB) *PeriodRepository {
	return &PeriodRepository{db: tx}
}

// HasRun reports whether a job already ran for a period.
func (r *PeriodRepository) HasRun(ctx context.Context, job, periodKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PeriodRun{}).
		Where("job = ? AND period_key = ?", job, periodKey).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check period run %s/%s: %w", job, periodKey, err)
	}
	return count > 0, nil
}

// Record inserts the run marker. A second marker for the same period fails with ErrDuplicate.
func (r *PeriodRepository) Record(ctx context.Context, run *models.PeriodRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record period run: %w", translate(err))
	}
	return nil
}

// Replace removes any marker for the period and inserts a new one.
func (r *PeriodRepository) Replace(ctx context.Context, run *models.PeriodRun) error {
	return r.db.Transaction(ctx, func(tx *DB) error {
		if err := tx.Where("job = ? AND period_key = ?", run.Job, run.PeriodKey).Delete(&models.PeriodRun{}).Error; err != nil {
			return fmt.Errorf("failed to clear period run: %w", err)
		}
		return (&PeriodRepository{db: tx}).Record(ctx, run)
	})
}

// Latest returns the most recent runs, newest first.
func (r *PeriodRepository) Latest(ctx context.Context, job string, limit int) ([]models.PeriodRun, error) {
	var runs []models.PeriodRun
	err := r.db.WithContext(ctx).Where("job = ?", job).Order("ran_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s runs: %w", job, err)
	}
	return runs, nil
}
