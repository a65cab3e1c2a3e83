package mocks

import (
	"context"
	"sync"

	"github.com/aimd54/campus-rewards/internal/mattermost"
)

// Announcement is one recorded call to MockAnnouncer.
type Announcement struct {
	Kind    string
	Period  string
	Winners []mattermost.Winner
}

// MockAnnouncer records reset announcements instead of posting them
type MockAnnouncer struct {
	mu   sync.Mutex
	Sent []Announcement
	Err  error
	// OnSend runs before each announcement is recorded.
	OnSend func()
}

// SendWeeklyWinners records a weekly announcement
func (m *MockAnnouncer) SendWeeklyWinners(ctx context.Context, week string, winners []mattermost.Winner) error {
	return m.record("weekly", week, winners)
}

// SendMonthlyWinners records a monthly announcement
func (m *MockAnnouncer) SendMonthlyWinners(ctx context.Context, month string, winners []mattermost.Winner) error {
	return m.record("monthly", month, winners)
}

func (m *MockAnnouncer) record(kind, period string, winners []mattermost.Winner) error {
	if m.OnSend != nil {
		m.OnSend()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Announcement{Kind: kind, Period: period, Winners: winners})
	return nil
}
