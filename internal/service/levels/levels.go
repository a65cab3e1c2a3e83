// Package levels maps lifetime XP onto levels using a configured threshold table.
package levels

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aimd54/campus-rewards/internal/config"
)

// Calculator computes levels from lifetime XP. It is safe for concurrent use.
type Calculator struct {
	thresholds []int64
}

// Progress describes where a lifetime XP total sits in the level table.
type Progress struct {
	Level            int     `json:"level"`
	TotalEarnedXP    int64   `json:"total_earned_xp"`
	CurrentThreshold int64   `json:"current_threshold"`
	NextThreshold    int64   `json:"next_threshold,omitempty"`
	XPToNext         int64   `json:"xp_to_next"`
	Percent          float64 `json:"percent"`
	MaxLevel         bool    `json:"max_level"`
}

// New creates a calculator. thresholds[i] is the XP required for level i+1;
// the table must start at 0 and be strictly increasing.
func New(thresholds []int64) (*Calculator, error) {
	cfg := config.LevelsConfig{Thresholds: thresholds}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid level table: %w", err)
	}
	table := make([]int64, len(thresholds))
	copy(table, thresholds)
	return &Calculator{thresholds: table}, nil
}

// Default returns a calculator over the stock table.
func Default() *Calculator {
	c, err := New(config.DefaultLevelThresholds)
	if err != nil {
		panic(err)
	}
	return c
}

// Level returns the number of thresholds at or below xp, never less than 1.
func (c *Calculator) Level(xp int64) int {
	n := sort.Search(len(c.thresholds), func(i int) bool { return c.thresholds[i] > xp })
	if n < 1 {
		return 1
	}
	return n
}

// MaxLevel returns the highest reachable level.
func (c *Calculator) MaxLevel() int {
	return len(c.thresholds)
}

// Progress reports the level and the distance to the next one.
func (c *Calculator) Progress(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	level := c.Level(xp)
	p := Progress{
		Level:            level,
		TotalEarnedXP:    xp,
		CurrentThreshold: c.thresholds[level-1],
	}
	if level >= c.MaxLevel() {
		p.MaxLevel = true
		p.Percent = 100
		return p
	}

	p.NextThreshold = c.thresholds[level]
	p.XPToNext = p.NextThreshold - xp
	span := decimal.NewFromInt(p.NextThreshold - p.CurrentThreshold)
	done := decimal.NewFromInt(xp - p.CurrentThreshold)
	p.Percent = done.Mul(decimal.NewFromInt(100)).Div(span).Round(2).InexactFloat64()
	return p
}
