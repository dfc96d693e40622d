package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

// ActivityService implements the per-user activity log and the streak
// computation derived from it.
type ActivityService struct {
	activities repository.ActivityRepository
	logger     *slog.Logger

	// now is injectable so streak tests can pin "today".
	now func() time.Time
}

func NewActivityService(activities repository.ActivityRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// Log validates and stores an activity for the user. The date is
// normalized to midnight UTC; an omitted date means today.
func (s *ActivityService) Log(ctx context.Context, userID string, activity *model.Activity) (*model.Activity, error) {
	activity.Name = strings.TrimSpace(activity.Name)
	if activity.Name == "" {
		return nil, apperror.ValidationField("name", "name is required")
	}

	if activity.Date.IsZero() {
		activity.Date = s.now()
	}
	activity.Date = truncateToDay(activity.Date)
	activity.UserID = userID

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("service/activity: logging activity: %w", err)
	}

	s.logger.Info("activity logged",
		slog.String("activityID", activity.ID),
		slog.String("userID", userID),
	)

	return activity, nil
}

// List returns the user's activities, newest first.
func (s *ActivityService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Activity, error) {
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	activities, err := s.activities.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/activity: listing activities: %w", err)
	}
	return activities, nil
}

// Delete removes one of the user's activities.
func (s *ActivityService) Delete(ctx context.Context, userID, id string) error {
	return s.activities.Delete(ctx, userID, id)
}

// Streak computes the user's current and longest streaks from the set of
// distinct activity days.
//
// The current streak counts back day by day from today; a run that ended
// yesterday still counts (today isn't over), a run that ended before that
// is 0. The longest streak is the longest consecutive run anywhere in the
// history.
func (s *ActivityService) Streak(ctx context.Context, userID string) (model.Streak, error) {
	dates, err := s.activities.Dates(ctx, userID)
	if err != nil {
		return model.Streak{}, fmt.Errorf("service/activity: loading activity dates: %w", err)
	}
	if len(dates) == 0 {
		return model.Streak{}, nil
	}

	// Normalize and dedupe. Dates come newest-first from the store but we
	// don't rely on it.
	seen := map[time.Time]bool{}
	days := []time.Time{}
	for _, d := range dates {
		day := truncateToDay(d)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := truncateToDay(s.now())

	streak := model.Streak{}

	// Current streak: walk back from today (or yesterday).
	head := days[0]
	if head.Equal(today) || head.Equal(today.AddDate(0, 0, -1)) {
		streak.Current = 1
		for i := 1; i < len(days); i++ {
			if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
				streak.Current++
			} else {
				break
			}
		}
	}

	// Longest run anywhere.
	run := 1
	streak.Longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			run++
		} else {
			run = 1
		}
		if run > streak.Longest {
			streak.Longest = run
		}
	}

	return streak, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

