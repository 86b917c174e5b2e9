package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/apperr"
	"github.com/todoapp/todo-api/internal/model"
	"github.com/todoapp/todo-api/internal/repository"
)

// TodoStore is the persistence the todo service needs. Every lookup is scoped
// to the creator so that foreign todos are indistinguishable from missing ones.
type TodoStore interface {
	Create(ctx context.Context, todo *model.Todo) error
	ListByCreator(ctx context.Context, creator primitive.ObjectID) ([]model.Todo, error)
	GetByID(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error)
	Delete(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error)
	Update(ctx context.Context, id, creator primitive.ObjectID, patch model.TodoPatch) (*model.Todo, error)
}

// TodoService handles todo business logic.
type TodoService struct {
	todos    TodoStore
	validate *validator.Validate
	now      func() time.Time
}

// NewTodoService creates a new TodoService.
func NewTodoService(todos TodoStore) *TodoService {
	return &TodoService{
		todos:    todos,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Create stores a new incomplete todo owned by creator.
func (s *TodoService) Create(ctx context.Context, creator primitive.ObjectID, req model.CreateTodoRequest) (model.Todo, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validateStruct(s.validate, req); err != nil {
		return model.Todo{}, err
	}

	todo := model.Todo{
		Text:    req.Text,
		Creator: creator,
	}
	if err := s.todos.Create(ctx, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}

	return todo, nil
}

// List returns every todo owned by creator.
func (s *TodoService) List(ctx context.Context, creator primitive.ObjectID) ([]model.Todo, error) {
	todos, err := s.todos.ListByCreator(ctx, creator)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Get returns an owned todo by its hex id.
func (s *TodoService) Get(ctx context.Context, creator primitive.ObjectID, rawID string) (model.Todo, error) {
	id, err := parseTodoID(rawID)
	if err != nil {
		return model.Todo{}, err
	}

	todo, err := s.todos.GetByID(ctx, id, creator)
	if err != nil {
		return model.Todo{}, mapTodoErr("get todo", err)
	}
	return *todo, nil
}

// Delete removes an owned todo and returns it.
func (s *TodoService) Delete(ctx context.Context, creator primitive.ObjectID, rawID string) (model.Todo, error) {
	id, err := parseTodoID(rawID)
	if err != nil {
		return model.Todo{}, err
	}

	todo, err := s.todos.Delete(ctx, id, creator)
	if err != nil {
		return model.Todo{}, mapTodoErr("delete todo", err)
	}
	return *todo, nil
}

// Update applies a partial update to an owned todo. Marking it completed
// stamps completedAt with the current time in epoch milliseconds; any other
// value of completed, including absence, marks it incomplete and clears the stamp.
func (s *TodoService) Update(ctx context.Context, creator primitive.ObjectID, rawID string, req model.UpdateTodoRequest) (model.Todo, error) {
	id, err := parseTodoID(rawID)
	if err != nil {
		return model.Todo{}, err
	}

	var patch model.TodoPatch
	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return model.Todo{}, apperr.Validation("validation failed", map[string]string{"text": "is required"})
		}
		patch.Text = &text
	}

	if req.Completed != nil && *req.Completed {
		stamp := s.now().UnixMilli()
		patch.Completed = true
		patch.CompletedAt = &stamp
	}

	todo, err := s.todos.Update(ctx, id, creator, patch)
	if err != nil {
		return model.Todo{}, mapTodoErr("update todo", err)
	}
	return *todo, nil
}

func parseTodoID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidTodoID
	}
	return id, nil
}

func mapTodoErr(op string, err error) error {
	if errors.Is(err, repository.ErrTodoNotFound) {
		return ErrTodoNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
