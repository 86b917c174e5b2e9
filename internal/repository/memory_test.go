package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/model"
)

func TestMemoryUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.Create(ctx, &model.User{Email: "a@example.com", Password: "h"}))
	err := repo.Create(ctx, &model.User{Email: "a@example.com", Password: "h"})

	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, repo.Count())
}

func TestMemoryUserRepository_Tokens(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	user := &model.User{Email: "a@example.com", Password: "h"}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.AddToken(ctx, user.ID, model.Token{Access: model.AccessAuth, Token: "t1"}))
	require.NoError(t, repo.AddToken(ctx, user.ID, model.Token{Access: model.AccessAuth, Token: "t2"}))

	got, err := repo.GetByToken(ctx, user.ID, model.AccessAuth, "t1")
	require.NoError(t, err)
	assert.Len(t, got.Tokens, 2)

	_, err = repo.GetByToken(ctx, user.ID, "reset", "t1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.RemoveToken(ctx, user.ID, "t1"))
	_, err = repo.GetByToken(ctx, user.ID, model.AccessAuth, "t1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByToken(ctx, user.ID, model.AccessAuth, "t2")
	assert.NoError(t, err)
}

func TestMemoryUserRepository_AddTokenUnknownUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	err := repo.AddToken(context.Background(), primitive.NewObjectID(), model.Token{Access: model.AccessAuth, Token: "t"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryTodoRepository_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTodoRepository()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	first := &model.Todo{Text: "first", Creator: alice}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &model.Todo{Text: "second", Creator: alice}))
	require.NoError(t, repo.Create(ctx, &model.Todo{Text: "bob's", Creator: bob}))

	todos, err := repo.ListByCreator(ctx, alice)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "first", todos[0].Text)
	assert.Equal(t, "second", todos[1].Text)

	_, err = repo.GetByID(ctx, first.ID, bob)
	assert.ErrorIs(t, err, ErrTodoNotFound)

	_, err = repo.Delete(ctx, first.ID, bob)
	assert.ErrorIs(t, err, ErrTodoNotFound)
	assert.Equal(t, 3, repo.Count())

	deleted, err := repo.Delete(ctx, first.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)
	assert.Equal(t, 2, repo.Count())
}

func TestMemoryTodoRepository_UpdateClearsCompletedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTodoRepository()
	owner := primitive.NewObjectID()

	ts := int64(333)
	todo := &model.Todo{Text: "done", Completed: true, CompletedAt: &ts, Creator: owner}
	require.NoError(t, repo.Create(ctx, todo))

	text := "renamed"
	updated, err := repo.Update(ctx, todo.ID, owner, model.TodoPatch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Text)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)

	stored, err := repo.GetByID(ctx, todo.ID, owner)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedAt)
}

func TestMemoryTodoRepository_ListEmptyIsNonNil(t *testing.T) {
	todos, err := NewMemoryTodoRepository().ListByCreator(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}
