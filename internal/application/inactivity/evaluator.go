// Package inactivity decides which tracked profiles have gone quiet and
// dispatches email reminders to them.
package inactivity

import (
	"context"
	"fmt"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
)

// Evaluator applies the inactivity policy to the roster.
type Evaluator struct {
	repo profile.Repository
}

// NewEvaluator creates an evaluator over the given repository.
func NewEvaluator(repo profile.Repository) *Evaluator {
	return &Evaluator{repo: repo}
}

// FindInactive returns the profiles that are candidates for a reminder:
// active, with notifications enabled, and with no submission at or after
// the cutoff. A submission exactly at the cutoff still counts as recent.
// Reminder cooldown is not applied here; the dispatch loop owns it.
func (e *Evaluator) FindInactive(ctx context.Context, now time.Time, thresholdDays int) ([]*profile.TrackedProfile, error) {
	cutoff := now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)

	candidates, err := e.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("find inactive: %w", err)
	}

	var inactive []*profile.TrackedProfile
	for _, p := range candidates {
		if !p.NotificationsEnabled {
			continue
		}
		if p.IsInactiveSince(cutoff) {
			inactive = append(inactive, p)
		}
	}

	return inactive, nil
}
