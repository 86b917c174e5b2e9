package repository

import (
	"context"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/model"
)

// MemoryUserRepository keeps users in process memory. It backs
// STORE_DRIVER=memory and the HTTP tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[primitive.ObjectID]*model.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	user.ID = primitive.NewObjectID()
	if user.Tokens == nil {
		user.Tokens = []model.Token{}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) GetByToken(_ context.Context, id primitive.ObjectID, access, token string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || !u.HasToken(access, token) {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) AddToken(_ context.Context, id primitive.ObjectID, token model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (r *MemoryUserRepository) RemoveToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t model.Token) bool {
		return t.Token == token
	})
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	return nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Tokens = slices.Clone(u.Tokens)
	if c.Tokens == nil {
		c.Tokens = []model.Token{}
	}
	return &c
}

// MemoryTodoRepository keeps todos in process memory, preserving insertion order.
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	todos []model.Todo
}

func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{}
}

func (r *MemoryTodoRepository) Create(_ context.Context, todo *model.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	todo.ID = primitive.NewObjectID()
	r.todos = append(r.todos, cloneTodo(*todo))
	return nil
}

func (r *MemoryTodoRepository) ListByCreator(_ context.Context, creator primitive.ObjectID) ([]model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := []model.Todo{}
	for _, t := range r.todos {
		if t.Creator == creator {
			todos = append(todos, cloneTodo(t))
		}
	}
	return todos, nil
}

func (r *MemoryTodoRepository) GetByID(_ context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id, creator)
	if i < 0 {
		return nil, ErrTodoNotFound
	}
	t := cloneTodo(r.todos[i])
	return &t, nil
}

func (r *MemoryTodoRepository) Delete(_ context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id, creator)
	if i < 0 {
		return nil, ErrTodoNotFound
	}
	t := r.todos[i]
	r.todos = slices.Delete(r.todos, i, i+1)
	return &t, nil
}

func (r *MemoryTodoRepository) Update(_ context.Context, id, creator primitive.ObjectID, patch model.TodoPatch) (*model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id, creator)
	if i < 0 {
		return nil, ErrTodoNotFound
	}

	t := &r.todos[i]
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	t.Completed = patch.Completed
	t.CompletedAt = nil
	if patch.CompletedAt != nil {
		v := *patch.CompletedAt
		t.CompletedAt = &v
	}

	updated := cloneTodo(*t)
	return &updated, nil
}

// Count returns the number of stored todos across all users.
func (r *MemoryTodoRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.todos)
}

func (r *MemoryTodoRepository) indexOf(id, creator primitive.ObjectID) int {
	return slices.IndexFunc(r.todos, func(t model.Todo) bool {
		return t.ID == id && t.Creator == creator
	})
}

func cloneTodo(t model.Todo) model.Todo {
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	return t
}
