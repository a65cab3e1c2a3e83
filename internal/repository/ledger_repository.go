package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/campus-rewards/internal/models"
)

// Counter column names.
const (
	ColPoints        = "points"
	ColTotalEarnedXP = "total_earned_xp"
	ColWeeklyXP      = "weekly_xp"
	ColMonthlyPoints = "monthly_points"
	ColCoins         = "coins"
)

// LevelFunc maps a lifetime XP total to a level.
type LevelFunc func(totalEarnedXP int64) int

// Mutation describes one atomic change to a user's or club's counters.
// User mutations may set Points, TotalEarnedXP and WeeklyXP; club mutations
// may set Points, MonthlyPoints and Coins. Other fields are ignored.
type Mutation struct {
	Subject   models.SubjectType
	SubjectID uint

	Points        int64
	TotalEarnedXP int64
	WeeklyXP      int64
	MonthlyPoints int64
	Coins         int64

	// LedgerAmount is recorded as a ledger row when non-zero.
	LedgerAmount int64
	Reason       string
	SourceType   models.SourceType
	SourceID     *uint

	// RequirePoints makes the update conditional on points >= RequirePoints.
	RequirePoints int64
}

// Counters is a snapshot of a subject's balances.
type Counters struct {
	Points        int64 `gorm:"column:points" json:"points"`
	TotalEarnedXP int64 `gorm:"column:total_earned_xp" json:"total_earned_xp,omitempty"`
	WeeklyXP      int64 `gorm:"column:weekly_xp" json:"weekly_xp,omitempty"`
	MonthlyPoints int64 `gorm:"column:monthly_points" json:"monthly_points,omitempty"`
	Coins         int64 `gorm:"column:coins" json:"coins,omitempty"`
	Level         int   `gorm:"column:level" json:"level,omitempty"`
}

func (c *Counters) get(column string) int64 {
	switch column {
	case ColPoints:
		return c.Points
	case ColTotalEarnedXP:
		return c.TotalEarnedXP
	case ColWeeklyXP:
		return c.WeeklyXP
	case ColMonthlyPoints:
		return c.MonthlyPoints
	case ColCoins:
		return c.Coins
	}
	return 0
}

// Applied is the outcome of a mutation.
type Applied struct {
	SubjectID uint
	After     Counters
	Entry     *models.LedgerEntry
	// Shortfall holds, per column, how much of a negative delta was not
	// applied because the counter hit zero.
	Shortfall map[string]int64
}

// Clamped reports whether any negative delta was under-applied.
func (a *Applied) Clamped() bool {
	return len(a.Shortfall) > 0
}

type columnDelta struct {
	column string
	delta  int64
}

func (m *Mutation) table() (string, error) {
	switch m.Subject {
	case models.SubjectUser:
		return "users", nil
	case models.SubjectClub:
		return "clubs", nil
	default:
		return "", fmt.Errorf("unknown subject type %q", m.Subject)
	}
}

func (m *Mutation) columns() []string {
	if m.Subject == models.SubjectUser {
		return []string{ColPoints, ColTotalEarnedXP, ColWeeklyXP, "level"}
	}
	return []string{ColPoints, ColMonthlyPoints, ColCoins}
}

// deltas returns the non-zero deltas for the mutation's subject.
func (m *Mutation) deltas() []columnDelta {
	var all []columnDelta
	if m.Subject == models.SubjectUser {
		all = []columnDelta{{ColPoints, m.Points}, {ColTotalEarnedXP, m.TotalEarnedXP}, {ColWeeklyXP, m.WeeklyXP}}
	} else {
		all = []columnDelta{{ColPoints, m.Points}, {ColMonthlyPoints, m.MonthlyPoints}, {ColCoins, m.Coins}}
	}
	out := all[:0]
	for _, d := range all {
		if d.delta != 0 {
			out = append(out, d)
		}
	}
	return out
}

func hasNegative(deltas []columnDelta) bool {
	for _, d := range deltas {
		if d.delta < 0 {
			return true
		}
	}
	return false
}

// deltaExpr renders an in-place increment, floor-clamped at zero for decrements.
func deltaExpr(d columnDelta) clause.Expr {
	if d.delta >= 0 {
		return gorm.Expr(d.column+" + ?", d.delta)
	}
	n := -d.delta
	return gorm.Expr("CASE WHEN "+d.column+" > ? THEN "+d.column+" - ? ELSE 0 END", n, n)
}

func shortfall(deltas []columnDelta, before, after *Counters) map[string]int64 {
	out := map[string]int64{}
	for _, d := range deltas {
		if d.delta >= 0 {
			continue
		}
		applied := before.get(d.column) - after.get(d.column)
		if missing := -d.delta - applied; missing > 0 {
			out[d.column] = missing
		}
	}
	return out
}

// LedgerRepository applies counter mutations and records ledger entries.
type LedgerRepository struct {
	db  *DB
	now func() time.Time
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

// WithTx returns a copy bound to an open transaction.
func (r *LedgerRepository) WithTx(tx *DB) *LedgerRepository {
	return &LedgerRepository{db: tx, now: r.now}
}

// Apply performs the mutation in one transaction: an atomic in-place update,
// a level rewrite for users, and the ledger row.
func (r *LedgerRepository) Apply(ctx context.Context, m *Mutation, level LevelFunc) (*Applied, error) {
	table, err := m.table()
	if err != nil {
		return nil, err
	}
	deltas := m.deltas()
	applied := &Applied{SubjectID: m.SubjectID, Shortfall: map[string]int64{}}

	err = r.db.Transaction(ctx, func(tx *DB) error {
		var before Counters
		if hasNegative(deltas) {
			err := tx.Table(table).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Select(m.columns()).
				Where("id = ?", m.SubjectID).
				Take(&before).Error
			if err != nil {
				return translate(err)
			}
		}

		if len(deltas) > 0 {
			updates := map[string]interface{}{"updated_at": r.now()}
			for _, d := range deltas {
				updates[d.column] = deltaExpr(d)
			}
			q := tx.Table(table).Where("id = ?", m.SubjectID)
			if m.RequirePoints > 0 {
				q = q.Where("points >= ?", m.RequirePoints)
			}
			res := q.UpdateColumns(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to update %s counters: %w", table, res.Error)
			}
			if res.RowsAffected == 0 {
				if m.RequirePoints > 0 && r.exists(tx, table, m.SubjectID) {
					return ErrInsufficientPoints
				}
				return ErrNotFound
			}
		}

		err := tx.Table(table).Select(m.columns()).Where("id = ?", m.SubjectID).Take(&applied.After).Error
		if err != nil {
			return translate(err)
		}
		if hasNegative(deltas) {
			applied.Shortfall = shortfall(deltas, &before, &applied.After)
		}

		if m.Subject == models.SubjectUser && level != nil {
			lvl := level(applied.After.TotalEarnedXP)
			if lvl != applied.After.Level {
				if err := tx.Table(table).Where("id = ?", m.SubjectID).UpdateColumn("level", lvl).Error; err != nil {
					return fmt.Errorf("failed to update level: %w", err)
				}
				applied.After.Level = lvl
			}
		}

		if m.LedgerAmount != 0 {
			entry := r.entry(m, m.SubjectID)
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to append ledger entry: %w", err)
			}
			applied.Entry = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// ApplyClubs applies the same club mutation to many clubs with one UPDATE,
// clamped per row, and one ledger row per club that exists.
func (r *LedgerRepository) ApplyClubs(ctx context.Context, clubIDs []uint, m *Mutation) (map[uint]*Applied, error) {
	if len(clubIDs) == 0 {
		return map[uint]*Applied{}, nil
	}
	m.Subject = models.SubjectClub
	deltas := m.deltas()
	results := make(map[uint]*Applied, len(clubIDs))

	type row struct {
		ID uint `gorm:"column:id"`
		Counters
	}
	cols := append([]string{"id"}, m.columns()...)

	err := r.db.Transaction(ctx, func(tx *DB) error {
		var before []row
		err := tx.Table("clubs").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select(cols).
			Where("id IN ?", clubIDs).
			Find(&before).Error
		if err != nil {
			return fmt.Errorf("failed to lock clubs: %w", err)
		}
		if len(before) == 0 {
			return nil
		}

		if len(deltas) > 0 {
			updates := map[string]interface{}{"updated_at": r.now()}
			for _, d := range deltas {
				updates[d.column] = deltaExpr(d)
			}
			if err := tx.Table("clubs").Where("id IN ?", clubIDs).UpdateColumns(updates).Error; err != nil {
				return fmt.Errorf("failed to update club counters: %w", err)
			}
		}

		var after []row
		if err := tx.Table("clubs").Select(cols).Where("id IN ?", clubIDs).Find(&after).Error; err != nil {
			return fmt.Errorf("failed to read club counters: %w", err)
		}
		byID := make(map[uint]Counters, len(before))
		for _, b := range before {
			byID[b.ID] = b.Counters
		}

		var entries []*models.LedgerEntry
		for _, a := range after {
			b := byID[a.ID]
			res := &Applied{SubjectID: a.ID, After: a.Counters, Shortfall: shortfall(deltas, &b, &a.Counters)}
			if m.LedgerAmount != 0 {
				res.Entry = r.entry(m, a.ID)
				entries = append(entries, res.Entry)
			}
			results[a.ID] = res
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("failed to append ledger entries: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// History returns a subject's ledger entries, newest first.
func (r *LedgerRepository) History(ctx context.Context, subject models.SubjectType, subjectID uint, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	q := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subject, subjectID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// SumBySource totals the ledger amounts a subject received from one source.
func (r *LedgerRepository) SumBySource(ctx context.Context, subject models.SubjectType, subjectID uint, source models.SourceType, sourceID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("subject_type = ? AND subject_id = ? AND source_type = ? AND source_id = ?", subject, subjectID, source, sourceID).
		Scan(&total).Error
	return total, err
}

func (r *LedgerRepository) entry(m *Mutation, subjectID uint) *models.LedgerEntry {
	return &models.LedgerEntry{
		SubjectType: m.Subject,
		SubjectID:   subjectID,
		Amount:      m.LedgerAmount,
		Reason:      m.Reason,
		SourceID:    m.SourceID,
		SourceType:  m.SourceType,
		CreatedAt:   r.now(),
	}
}

func (r *LedgerRepository) exists(tx *DB, table string, id uint) bool {
	var count int64
	if err := tx.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// IsNotFound reports whether err means the subject does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
