package models

import "time"

// SubjectType identifies the owner of a ledger entry.
type SubjectType string

// SourceType tags what triggered a ledger entry.
type SourceType string

// Subject types.
const (
	SubjectUser SubjectType = "user"
	SubjectClub SubjectType = "club"
)

// Source types.
const (
	SourceEvent     SourceType = "event"
	SourceChallenge SourceType = "challenge"
	SourceTask      SourceType = "task"
	SourceBonus     SourceType = "bonus"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceEvent, SourceChallenge, SourceTask, SourceBonus:
		return true
	}
	return false
}

// LedgerEntry is one signed amount applied to one subject. Entries are append-only.
type LedgerEntry struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	SubjectType SubjectType `gorm:"size:10;not null;index:idx_ledger_subject,priority:1" json:"subject_type"`
	SubjectID   uint        `gorm:"not null;index:idx_ledger_subject,priority:2" json:"subject_id"`
	Amount      int64       `gorm:"not null" json:"amount"`
	Reason      string      `gorm:"size:255;not null" json:"reason"`
	SourceID    *uint       `gorm:"index:idx_ledger_source,priority:2" json:"source_id,omitempty"`
	SourceType  SourceType  `gorm:"size:20;not null;index:idx_ledger_source,priority:1" json:"source_type"`
	CreatedAt   time.Time   `gorm:"not null;index:idx_ledger_subject,priority:3" json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
