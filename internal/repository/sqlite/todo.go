package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

// TodoDB implements repository.TodoRepository.
type TodoDB struct {
	conn *sql.DB
}

var _ repository.TodoRepository = (*TodoDB)(nil)

// Create inserts a new todo, assigning ID and timestamps.
func (db *TodoDB) Create(ctx context.Context, todo *model.Todo) error {
	now := time.Now()
	todo.ID = xid.New().String()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, title, description, completed, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.DueDate,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting todo: %w", err)
	}

	return nil
}

// GetByID retrieves a todo by id, scoped to its owner. A todo belonging
// to a different user is indistinguishable from a missing one.
func (db *TodoDB) GetByID(ctx context.Context, userID, id string) (*model.Todo, error) {
	var (
		t       model.Todo
		dueDate sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, completed, due_date, created_at, updated_at
		 FROM todos WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &dueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("todo not found")
		}
		return nil, fmt.Errorf("sqlite: getting todo %s: %w", id, err)
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}

	return &t, nil
}

// List returns the user's todos, newest first.
func (db *TodoDB) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Todo, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, description, completed, due_date, created_at, updated_at
		 FROM todos WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var (
			t       model.Todo
			dueDate sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
			&dueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo: %w", err)
		}
		if dueDate.Valid {
			t.DueDate = &dueDate.Time
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating todos: %w", err)
	}

	return todos, nil
}

// Update writes title, description, completed, and due date, scoped to the
// owner carried on the struct.
func (db *TodoDB) Update(ctx context.Context, todo *model.Todo) error {
	todo.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE todos
		 SET title = ?, description = ?, completed = ?, due_date = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.DueDate,
		todo.UpdatedAt,
		todo.ID,
		todo.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating todo %s: %w", todo.ID, err)
	}
	return requireRowAffected(res, "todo not found")
}

// Delete removes a todo, scoped to its owner.
func (db *TodoDB) Delete(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %s: %w", id, err)
	}
	return requireRowAffected(res, "todo not found")
}
