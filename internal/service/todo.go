package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

const (
	maxTitleLength = 200
	maxListLimit   = 100
)

// TodoService implements per-user todo CRUD. Every operation is scoped to
// the authenticated user id supplied by the handler; a todo owned by
// someone else looks exactly like a missing one.
type TodoService struct {
	todos  repository.TodoRepository
	logger *slog.Logger
}

func NewTodoService(todos repository.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{todos: todos, logger: logger}
}

// Create validates and stores a new todo for the user.
func (s *TodoService) Create(ctx context.Context, userID string, todo *model.Todo) (*model.Todo, error) {
	todo.Title = strings.TrimSpace(todo.Title)
	if err := validateTitle(todo.Title); err != nil {
		return nil, err
	}

	todo.UserID = userID
	todo.Completed = false

	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("service/todo: creating todo: %w", err)
	}

	s.logger.Info("todo created",
		slog.String("todoID", todo.ID),
		slog.String("userID", userID),
	)

	return todo, nil
}

// Get returns one of the user's todos.
func (s *TodoService) Get(ctx context.Context, userID, id string) (*model.Todo, error) {
	todo, err := s.todos.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// List returns the user's todos with pagination clamped to sane bounds.
func (s *TodoService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Todo, error) {
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	todos, err := s.todos.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/todo: listing todos: %w", err)
	}
	return todos, nil
}

// Update applies the writable fields onto an existing todo.
func (s *TodoService) Update(ctx context.Context, userID, id string, updated *model.Todo) (*model.Todo, error) {
	updated.Title = strings.TrimSpace(updated.Title)
	if err := validateTitle(updated.Title); err != nil {
		return nil, err
	}

	existing, err := s.todos.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	existing.Title = updated.Title
	existing.Description = updated.Description
	existing.Completed = updated.Completed
	existing.DueDate = updated.DueDate

	if err := s.todos.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("service/todo: updating todo %s: %w", id, err)
	}

	return existing, nil
}

// Delete removes one of the user's todos.
func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	if err := s.todos.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("todo deleted",
		slog.String("todoID", id),
		slog.String("userID", userID),
	)
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationField("title", "title is required")
	}
	if len(title) > maxTitleLength {
		return apperror.ValidationField("title", fmt.Sprintf("title must be %d characters or fewer", maxTitleLength))
	}
	return nil
}
