// Package apierr maps service errors to HTTP responses.
package apierr

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/campus-rewards/internal/service/reset"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
)

var (
	notFound = []error{rewards.ErrNotFound}

	conflict = []error{
		rewards.ErrAlreadyJoined,
		rewards.ErrAlreadyVoted,
		rewards.ErrAlreadyReviewed,
		rewards.ErrAlreadyCompleted,
		rewards.ErrAlreadyMember,
		rewards.ErrTeamFull,
		rewards.ErrPeriodAlreadyProcessed,
		reset.ErrLocked,
	}

	badRequest = []error{
		rewards.ErrInsufficientPoints,
		rewards.ErrDeadlinePassed,
		rewards.ErrPollClosed,
		rewards.ErrInvalidMarks,
		rewards.ErrInvalidOption,
		rewards.ErrInvalidStatus,
		rewards.ErrInvalidAmount,
		rewards.ErrNotApproved,
	}
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, badRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error. Internal errors are not echoed to the caller.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	Message(c, status, message)
}

// Message writes a JSON error with the given status.
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
