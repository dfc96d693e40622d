package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

// ActivityDB implements repository.ActivityRepository.
type ActivityDB struct {
	conn *sql.DB
}

var _ repository.ActivityRepository = (*ActivityDB)(nil)

// Create inserts a new activity entry.
func (db *ActivityDB) Create(ctx context.Context, activity *model.Activity) error {
	activity.ID = xid.New().String()
	activity.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, name, notes, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.UserID,
		activity.Name,
		activity.Notes,
		activity.Date,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting activity: %w", err)
	}

	return nil
}

// List returns the user's activities, newest first.
func (db *ActivityDB) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Activity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, notes, date, created_at
		 FROM activities WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities: %w", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Notes, &a.Date, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activities: %w", err)
	}

	return activities, nil
}

// Delete removes an activity, scoped to its owner.
func (db *ActivityDB) Delete(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM activities WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting activity %s: %w", id, err)
	}
	return requireRowAffected(res, "activity not found")
}

// Dates returns the user's distinct activity dates, newest first.
func (db *ActivityDB) Dates(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT date FROM activities WHERE user_id = ? ORDER BY date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activity dates: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activity dates: %w", err)
	}

	return dates, nil
}
