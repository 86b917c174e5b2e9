package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/model"
	"github.com/todoapp/todo-api/internal/repository"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	users  *repository.MemoryUserRepository
	todos  *repository.MemoryTodoRepository
}

func newTestServer(t *testing.T) *testServer {
	users := repository.NewMemoryUserRepository()
	todos := repository.NewMemoryTodoRepository()

	cfg := config.Config{
		StoreDriver: config.StoreMemory,
		JWTSecret:   "abc123",
		BcryptCost:  bcrypt.MinCost,
	}
	stores := Stores{Users: users, Todos: todos}

	return &testServer{
		t:      t,
		router: NewRouter(cfg, stores, zap.NewNop()),
		users:  users,
		todos:  todos,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth", token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns its token and id.
func (s *testServer) signup(email, password string) (string, primitive.ObjectID) {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var user model.UserResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &user))
	token := rec.Header().Get("x-auth")
	require.NotEmpty(s.t, token)
	return token, user.ID
}

func (s *testServer) createTodo(token, text string) model.Todo {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/todos", token, map[string]string{"text": text})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var todo model.Todo
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &todo))
	return todo
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var resp model.TodoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Todo
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "todo_api_http_requests_total")
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": "example@example.com", "password": "123mnb!"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("x-auth"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["_id"])
	assert.Equal(t, "example@example.com", body["email"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "tokens")

	stored, err := s.users.GetByEmail(t.Context(), "example@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "123mnb!", stored.Password)
}

func TestSignup_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": "and", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("x-auth"))

	rec = s.do(http.MethodPost, "/users", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, s.users.Count())
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.signup("jen@example.com", "userOnePass")

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": "jen@example.com", "password": "Password123!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, s.users.Count())
}

func TestSignup_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_PasswordLongerThanBcryptLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/users", "", map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 80)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password")
	assert.Empty(t, rec.Header().Get("x-auth"))
	assert.Equal(t, 0, s.users.Count())
}

func TestLogin_PasswordLongerThanBcryptLimit(t *testing.T) {
	s := newTestServer(t)
	s.signup("long@example.com", "userOnePass")

	rec := s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 80)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("x-auth"))
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	_, id := s.signup("jen@example.com", "userTwoPass")

	rec := s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "jen@example.com", "password": "userTwoPass"})
	require.Equal(t, http.StatusOK, rec.Code)

	token := rec.Header().Get("x-auth")
	require.NotEmpty(t, token)

	user, err := s.users.GetByID(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, user.Tokens, 2)
	assert.Equal(t, model.Token{Access: model.AccessAuth, Token: token}, user.Tokens[1])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	_, id := s.signup("jen@example.com", "userTwoPass")

	rec := s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "jen@example.com", "password": "userTwoPass1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("x-auth"))

	rec = s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "nobody@example.com", "password": "userTwoPass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	user, err := s.users.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, user.Tokens, 1)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token, id := s.signup("andrew@example.com", "userOnePass")

	rec := s.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "andrew@example.com", user.Email)
}

func TestProtectedRoutes_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	id := primitive.NewObjectID().Hex()

	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodDelete, "/users/me/token"},
		{http.MethodPost, "/todos"},
		{http.MethodGet, "/todos"},
		{http.MethodGet, "/todos/" + id},
		{http.MethodDelete, "/todos/" + id},
		{http.MethodPatch, "/todos/" + id},
	}

	for _, rt := range routes {
		for _, token := range []string{"", "not-a-token"} {
			rec := s.do(rt.method, rt.path, token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s token=%q", rt.method, rt.path, token)
			assert.Empty(t, rec.Body.String(), "%s %s", rt.method, rt.path)
		}
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	token, id := s.signup("mike@example.com", "userOnePass")

	rec := s.do(http.MethodDelete, "/users/me/token", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	user, err := s.users.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Empty(t, user.Tokens)

	rec = s.do(http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTodo(t *testing.T) {
	s := newTestServer(t)
	token, id := s.signup("a@example.com", "userOnePass")

	todo := s.createTodo(token, "Test todo text")
	assert.Equal(t, "Test todo text", todo.Text)
	assert.False(t, todo.Completed)
	assert.Nil(t, todo.CompletedAt)
	assert.Equal(t, id, todo.Creator)

	rec := s.do(http.MethodPost, "/todos", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, s.todos.Count())
}

func TestListTodos_OnlyOwn(t *testing.T) {
	s := newTestServer(t)
	first, _ := s.signup("one@example.com", "userOnePass")
	second, _ := s.signup("two@example.com", "userTwoPass")

	s.createTodo(first, "First test todo")
	s.createTodo(second, "Second test todo")

	rec := s.do(http.MethodGet, "/todos", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.TodoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Todos, 1)
	assert.Equal(t, "First test todo", resp.Todos[0].Text)
}

func TestListTodos_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup("empty@example.com", "userOnePass")

	rec := s.do(http.MethodGet, "/todos", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"todos":[]}`, rec.Body.String())
}

func TestGetTodo(t *testing.T) {
	s := newTestServer(t)
	first, _ := s.signup("one@example.com", "userOnePass")
	second, _ := s.signup("two@example.com", "userTwoPass")
	todo := s.createTodo(first, "First test todo")

	rec := s.do(http.MethodGet, "/todos/"+todo.ID.Hex(), first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "First test todo", decodeTodo(t, rec).Text)

	rec = s.do(http.MethodGet, "/todos/"+todo.ID.Hex(), second, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/todos/"+primitive.NewObjectID().Hex(), first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/todos/123abc", first, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTodo(t *testing.T) {
	s := newTestServer(t)
	first, _ := s.signup("one@example.com", "userOnePass")
	second, _ := s.signup("two@example.com", "userTwoPass")
	todo := s.createTodo(first, "First test todo")

	rec := s.do(http.MethodDelete, "/todos/"+todo.ID.Hex(), second, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, s.todos.Count())

	rec = s.do(http.MethodDelete, "/todos/"+todo.ID.Hex(), first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, todo.ID, decodeTodo(t, rec).ID)
	assert.Equal(t, 0, s.todos.Count())

	rec = s.do(http.MethodDelete, "/todos/"+todo.ID.Hex(), first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/todos/123abc", first, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTodo_LeavesOthers(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup("one@example.com", "userOnePass")
	first := s.createTodo(token, "First test todo")
	second := s.createTodo(token, "Second test todo")

	rec := s.do(http.MethodDelete, "/todos/"+first.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/todos", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.TodoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Todos, 1)
	assert.Equal(t, second.ID, resp.Todos[0].ID)

	rec = s.do(http.MethodGet, "/todos/"+first.ID.Hex(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTodo(t *testing.T) {
	s := newTestServer(t)
	first, _ := s.signup("one@example.com", "userOnePass")
	second, _ := s.signup("two@example.com", "userTwoPass")
	todo := s.createTodo(first, "First test todo")
	path := "/todos/" + todo.ID.Hex()

	rec := s.do(http.MethodPatch, path, first, map[string]any{"text": "This should be the new text", "completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeTodo(t, rec)
	assert.Equal(t, "This should be the new text", updated.Text)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
	assert.Positive(t, *updated.CompletedAt)

	rec = s.do(http.MethodPatch, path, first, map[string]any{"text": "This should be the new text!!", "completed": false})
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decodeTodo(t, rec)
	assert.Equal(t, "This should be the new text!!", updated.Text)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)
	assert.NotContains(t, rec.Body.String(), "completedAt")

	rec = s.do(http.MethodPatch, path, second, map[string]any{"text": "hijack", "completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, "/todos/123abc", first, map[string]any{"completed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/todos/"+primitive.NewObjectID().Hex(), first, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTodo_EmptyBodyMarksIncomplete(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup("one@example.com", "userOnePass")
	todo := s.createTodo(token, "empty patch")
	path := "/todos/" + todo.ID.Hex()

	rec := s.do(http.MethodPatch, path, token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, decodeTodo(t, rec).CompletedAt)

	rec = s.do(http.MethodPatch, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeTodo(t, rec)
	assert.Equal(t, "empty patch", updated.Text)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)
}

func TestUpdateTodo_IgnoresUnknownFields(t *testing.T) {
	s := newTestServer(t)
	token, id := s.signup("one@example.com", "userOnePass")
	todo := s.createTodo(token, "keep creator")

	rec := s.do(http.MethodPatch, "/todos/"+todo.ID.Hex(), token, map[string]any{
		"_creator":    primitive.NewObjectID().Hex(),
		"completedAt": 42,
		"completed":   false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeTodo(t, rec)
	assert.Equal(t, id, updated.Creator)
	assert.Equal(t, "keep creator", updated.Text)
	assert.Nil(t, updated.CompletedAt)
}
