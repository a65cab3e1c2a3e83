package rewards

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/aimd54/campus-rewards/internal/config"
)

// round rounds half away from zero.
func round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// EventClubPoints is the club total for a completed event.
func EventClubPoints(cfg config.RewardsConfig, chiefGuests, competitions, participants int, unannounced bool) int64 {
	total := decimal.NewFromInt(int64(chiefGuests) * cfg.EventGuestPoints).
		Add(decimal.NewFromInt(int64(competitions) * cfg.EventCompetitionPoints)).
		Add(decimal.NewFromInt(int64(participants) * cfg.EventParticipantPoints))
	if unannounced {
		total = total.Mul(decimal.NewFromFloat(cfg.UnannouncedFactor))
	}
	return round(total)
}

// CollaboratorPoints is each collaborating club's share of an event total.
func CollaboratorPoints(cfg config.RewardsConfig, total int64) int64 {
	return round(decimal.NewFromInt(total).Mul(decimal.NewFromFloat(cfg.CollaboratorShare)))
}

// WinnerXP returns the XP for a podium position, or 0 outside the table.
func WinnerXP(cfg config.RewardsConfig, position int) int64 {
	if position < 1 || position > len(cfg.EventWinnerXP) {
		return 0
	}
	return cfg.EventWinnerXP[position-1]
}

// GradeCredit is round(marks/100 × points).
func GradeCredit(marks int, points int64) int64 {
	return round(decimal.NewFromInt(int64(marks)).Mul(decimal.NewFromInt(points)).Div(decimal.NewFromInt(100)))
}

// RatingStars reads the leading number of a rating option label ("4 stars" -> 4).
// Labels without a leading number are worth nothing.
func RatingStars(label string) int64 {
	label = strings.TrimSpace(label)
	end := strings.IndexFunc(label, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(label)
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(label[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
