// Package mattermost posts reset winner announcements to an incoming webhook.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	http       *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a new Mattermost client. Outgoing messages are paced at
// cfg.RequestsPerSecond.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        log,
	}
}

// Message is the incoming webhook payload.
type Message struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Winner is one ranked entry of a reset announcement.
type Winner struct {
	College string
	Rank    int
	Name    string
	Score   int64
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// SendWeeklyWinners announces the top students of a closed week.
func (c *Client) SendWeeklyWinners(ctx context.Context, week string, winners []Winner) error {
	if len(winners) == 0 {
		c.log.Debug().Str("week", week).Msg("No weekly winners, skipping announcement")
		return nil
	}
	return c.SendMessage(ctx, &Message{
		Username: "Campus Rewards",
		Text:     formatWinners(fmt.Sprintf("### 🏆 %s leaderboard", week), "XP", winners),
	})
}

// SendMonthlyWinners announces the top clubs of a closed month.
func (c *Client) SendMonthlyWinners(ctx context.Context, month string, winners []Winner) error {
	if len(winners) == 0 {
		c.log.Debug().Str("month", month).Msg("No monthly winners, skipping announcement")
		return nil
	}
	return c.SendMessage(ctx, &Message{
		Username: "Campus Rewards",
		Text:     formatWinners(fmt.Sprintf("### 🏅 Club of the month: %s", month), "points", winners),
	})
}

var medals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

func formatWinners(title, unit string, winners []Winner) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	college := "\x00"
	for _, w := range winners {
		if w.College != college {
			college = w.College
			name := college
			if name == "" {
				name = "No college"
			}
			fmt.Fprintf(&b, "\n**%s**\n", name)
		}
		medal, ok := medals[w.Rank]
		if !ok {
			medal = fmt.Sprintf("#%d", w.Rank)
		}
		fmt.Fprintf(&b, "%s %s (%d %s)\n", medal, w.Name, w.Score, unit)
	}
	return b.String()
}
