// Package export writes a subject's ledger and awards as YAML. The field names
// are a stable contract for downstream consumers.
package export

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aimd54/campus-rewards/internal/models"
)

// Entry is one exported ledger row.
type Entry struct {
	Amount     int64     `yaml:"amount"`
	Reason     string    `yaml:"reason"`
	SourceType string    `yaml:"source_type"`
	SourceID   *uint     `yaml:"source_id,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// Award is one exported badge or achievement.
type Award struct {
	Name     string    `yaml:"name"`
	Icon     string    `yaml:"icon,omitempty"`
	Rank     *int      `yaml:"rank,omitempty"`
	EarnedAt time.Time `yaml:"earned_at"`
}

// Document is the exported history of one subject.
type Document struct {
	SubjectType string    `yaml:"subject_type"`
	SubjectID   uint      `yaml:"subject_id"`
	ExportedAt  time.Time `yaml:"exported_at"`
	Balance     int64     `yaml:"balance"`
	Entries     []Entry   `yaml:"entries"`
	Awards      []Award   `yaml:"awards,omitempty"`
}

// NewDocument builds a document from ledger rows. Balance is the sum of the
// rows, which can exceed the stored counter when decrements were clamped.
func NewDocument(subject models.SubjectType, subjectID uint, entries []models.LedgerEntry, now time.Time) *Document {
	doc := &Document{
		SubjectType: string(subject),
		SubjectID:   subjectID,
		ExportedAt:  now.UTC(),
		Entries:     make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Balance += e.Amount
		doc.Entries = append(doc.Entries, Entry{
			Amount:     e.Amount,
			Reason:     e.Reason,
			SourceType: string(e.SourceType),
			SourceID:   e.SourceID,
			CreatedAt:  e.CreatedAt.UTC(),
		})
	}
	return doc
}

// WithBadges attaches a user's badges.
func (d *Document) WithBadges(badges []models.UserBadge) *Document {
	for _, b := range badges {
		d.Awards = append(d.Awards, Award{Name: b.Name, Icon: b.Icon, Rank: b.Rank, EarnedAt: b.EarnedAt.UTC()})
	}
	return d
}

// WithAchievements attaches a club's achievements.
func (d *Document) WithAchievements(achievements []models.ClubAchievement) *Document {
	for _, a := range achievements {
		d.Awards = append(d.Awards, Award{Name: a.Title, Icon: a.Icon, Rank: a.Rank, EarnedAt: a.EarnedAt.UTC()})
	}
	return d
}

// Write encodes the document as YAML.
func (d *Document) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return enc.Close()
}
