// Package ledger applies balance mutations to users and clubs and keeps the
// append-only ledger that justifies them.
package ledger

import (
	"context"
	"fmt"

	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/levels"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Mutation is an atomic counter change for one subject.
type Mutation = repository.Mutation

// Result is the outcome of a mutation, including any clamp shortfall.
type Result = repository.Applied

// Service is the single write path for balances.
type Service struct {
	repo   *repository.LedgerRepository
	levels *levels.Calculator
	log    *logger.Logger
}

// NewService creates a new ledger service.
func NewService(repo *repository.LedgerRepository, calc *levels.Calculator, log *logger.Logger) *Service {
	return &Service{repo: repo, levels: calc, log: log}
}

// WithTx returns a service whose mutations join an open transaction.
func (s *Service) WithTx(tx *repository.DB) *Service {
	return &Service{repo: s.repo.WithTx(tx), levels: s.levels, log: s.log}
}

// UserXP builds an XP credit (or reversal when amount is negative): points,
// lifetime total and weekly XP move together.
func UserXP(userID uint, amount int64, reason string, source models.SourceType, sourceID *uint) Mutation {
	return Mutation{
		Subject:       models.SubjectUser,
		SubjectID:     userID,
		Points:        amount,
		TotalEarnedXP: amount,
		WeeklyXP:      amount,
		LedgerAmount:  amount,
		Reason:        reason,
		SourceType:    source,
		SourceID:      sourceID,
	}
}

// ClubPoints builds a club points change: lifetime and monthly points move together.
func ClubPoints(clubID uint, amount int64, reason string, source models.SourceType, sourceID *uint) Mutation {
	return Mutation{
		Subject:       models.SubjectClub,
		SubjectID:     clubID,
		Points:        amount,
		MonthlyPoints: amount,
		LedgerAmount:  amount,
		Reason:        reason,
		SourceType:    source,
		SourceID:      sourceID,
	}
}

// ClubCoins builds a coin credit. Coins carry no ledger row.
func ClubCoins(clubID uint, coins int64, source models.SourceType, sourceID *uint) Mutation {
	return Mutation{
		Subject:    models.SubjectClub,
		SubjectID:  clubID,
		Coins:      coins,
		SourceType: source,
		SourceID:   sourceID,
	}
}

// Apply performs one mutation in its own transaction (or the caller's, see WithTx).
func (s *Service) Apply(ctx context.Context, m Mutation) (*Result, error) {
	if !m.SourceType.Valid() {
		return nil, fmt.Errorf("invalid source type %q", m.SourceType)
	}

	res, err := s.repo.Apply(ctx, &m, s.levels.Level)
	if err != nil {
		return nil, err
	}

	s.observe(&m, res)
	return res, nil
}

// Debit removes fee from a user's points, lifetime total and weekly XP, only
// if the user currently holds at least fee points.
func (s *Service) Debit(ctx context.Context, userID uint, fee int64, reason string, source models.SourceType, sourceID *uint) (*Result, error) {
	m := UserXP(userID, -fee, reason, source, sourceID)
	m.RequirePoints = fee
	return s.Apply(ctx, m)
}

// ApplyClubs applies one club mutation to several clubs in a single statement.
func (s *Service) ApplyClubs(ctx context.Context, clubIDs []uint, m Mutation) (map[uint]*Result, error) {
	if !m.SourceType.Valid() {
		return nil, fmt.Errorf("invalid source type %q", m.SourceType)
	}

	results, err := s.repo.ApplyClubs(ctx, clubIDs, &m)
	if err != nil {
		return nil, err
	}

	for _, id := range clubIDs {
		res, ok := results[id]
		if !ok {
			s.log.Warn().
				Uint("club_id", id).
				Str("reason", m.Reason).
				Msg("Club missing from bulk mutation")
			continue
		}
		s.observe(&m, res)
	}
	return results, nil
}

// History returns a subject's ledger entries, newest first.
func (s *Service) History(ctx context.Context, subject models.SubjectType, subjectID uint, limit int) ([]models.LedgerEntry, error) {
	entries, err := s.repo.History(ctx, subject, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for %s %d: %w", subject, subjectID, err)
	}
	return entries, nil
}

// Net is what a subject has received, net of reversals, from one source.
func (s *Service) Net(ctx context.Context, subject models.SubjectType, subjectID uint, source models.SourceType, sourceID uint) (int64, error) {
	total, err := s.repo.SumBySource(ctx, subject, subjectID, source, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s %d ledger for %s %d: %w", subject, subjectID, source, sourceID, err)
	}
	return total, nil
}

func (s *Service) observe(m *Mutation, res *Result) {
	if m.LedgerAmount != 0 {
		prommetrics.RecordLedgerMutation(string(m.Subject), string(m.SourceType), m.LedgerAmount)
	}

	if res.Clamped() {
		for counter, missing := range res.Shortfall {
			prommetrics.RecordClamp(string(m.Subject), counter, missing)
			s.log.Warn().
				Str("subject", string(m.Subject)).
				Uint("subject_id", res.SubjectID).
				Str("counter", counter).
				Int64("shortfall", missing).
				Str("reason", m.Reason).
				Msg("Decrement clamped at zero")
		}
	}

	s.log.Debug().
		Str("subject", string(m.Subject)).
		Uint("subject_id", res.SubjectID).
		Int64("amount", m.LedgerAmount).
		Str("source", string(m.SourceType)).
		Str("reason", m.Reason).
		Msg("Balance mutation applied")
}
