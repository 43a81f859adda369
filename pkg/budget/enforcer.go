package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/tracker"
)

// ErrBudgetExceeded is returned when another upstream fetch would exceed a policy.
var ErrBudgetExceeded = errors.New("upstream fetch budget exceeded")

// Enforcer checks recorded upstream fetches against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
	now      func() time.Time
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t, now: time.Now}
}

// Check returns ErrBudgetExceeded if any policy has no fetches left.
func (e *Enforcer) Check(ctx context.Context) error {
	for _, p := range e.policies {
		used, err := e.tracker.CountSince(ctx, periodStart(p.Period, e.now()), "")
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxFetches {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns usage against every policy.
func (e *Enforcer) Status(ctx context.Context) ([]models.BudgetStatus, error) {
	statuses := make([]models.BudgetStatus, 0, len(e.policies))

	for _, p := range e.policies {
		used, err := e.tracker.CountSince(ctx, periodStart(p.Period, e.now()), "")
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := max(p.MaxFetches-used, 0)
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func periodStart(period models.BudgetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetHourly:
		return now.Truncate(time.Hour)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
