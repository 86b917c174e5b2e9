package repository

import (
	"context"
	"database/sql"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/model"
)

// TodoRepository persists todos in MySQL.
type TodoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new TodoRepository.
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, creator, text, completed, completed_at`

// Create inserts a todo and sets a freshly generated ID on it.
func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	id := primitive.NewObjectID()
	query := `INSERT INTO todos (id, creator, text, completed, completed_at) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		id.Hex(),
		todo.Creator.Hex(),
		todo.Text,
		todo.Completed,
		nullInt64(todo.CompletedAt),
	)
	if err != nil {
		return err
	}

	todo.ID = id
	return nil
}

// ListByCreator retrieves all todos owned by creator in insertion order.
func (r *TodoRepository) ListByCreator(ctx context.Context, creator primitive.ObjectID) ([]model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE creator = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, creator.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}

	return todos, rows.Err()
}

// GetByID retrieves a todo by ID, scoped to its creator.
func (r *TodoRepository) GetByID(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ? AND creator = ?`

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id.Hex(), creator.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

// Delete removes an owned todo and returns it as it was before removal.
func (r *TodoRepository) Delete(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	todo, err := lockTodo(ctx, tx, id, creator)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id.Hex()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return todo, nil
}

// Update applies patch to an owned todo and returns the updated row.
func (r *TodoRepository) Update(ctx context.Context, id, creator primitive.ObjectID, patch model.TodoPatch) (*model.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	todo, err := lockTodo(ctx, tx, id, creator)
	if err != nil {
		return nil, err
	}

	if patch.Text != nil {
		todo.Text = *patch.Text
	}
	todo.Completed = patch.Completed
	todo.CompletedAt = patch.CompletedAt

	_, err = tx.ExecContext(ctx, `UPDATE todos SET text = ?, completed = ?, completed_at = ? WHERE id = ?`,
		todo.Text, todo.Completed, nullInt64(todo.CompletedAt), id.Hex())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return todo, nil
}

func lockTodo(ctx context.Context, tx *sql.Tx, id, creator primitive.ObjectID) (*model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ? AND creator = ? FOR UPDATE`

	todo, err := scanTodo(tx.QueryRowContext(ctx, query, id.Hex(), creator.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*model.Todo, error) {
	var (
		rawID, rawCreator string
		completedAt       sql.NullInt64
		todo              model.Todo
	)
	if err := row.Scan(&rawID, &rawCreator, &todo.Text, &todo.Completed, &completedAt); err != nil {
		return nil, err
	}

	var err error
	if todo.ID, err = parseID(rawID); err != nil {
		return nil, err
	}
	if todo.Creator, err = parseID(rawCreator); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		v := completedAt.Int64
		todo.CompletedAt = &v
	}

	return &todo, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
