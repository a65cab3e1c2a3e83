package rewards

import (
	"errors"
	"fmt"

	"github.com/aimd54/campus-rewards/internal/repository"
)

// Errors returned by reward actions. Validation and lookup failures are
// reported before any balance changes.
var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyJoined          = errors.New("already joined")
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrDeadlinePassed         = errors.New("deadline passed")
	ErrAlreadyReviewed        = errors.New("already reviewed")
	ErrAlreadyCompleted       = errors.New("already completed")
	ErrPollClosed             = errors.New("poll closed")
	ErrTeamFull               = errors.New("team full")
	ErrAlreadyMember          = errors.New("already a member")
	ErrInvalidMarks           = errors.New("marks must be between 0 and 100")
	ErrInvalidOption          = errors.New("invalid poll option")
	ErrInvalidStatus          = errors.New("invalid review status")
	ErrInvalidAmount          = errors.New("amount must not be negative")
	ErrNotApproved            = errors.New("not approved")
	ErrPeriodAlreadyProcessed = errors.New("period already processed")
)

// notFound converts a repository miss into ErrNotFound.
func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}
