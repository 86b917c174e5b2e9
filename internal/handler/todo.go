package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/middleware"
	"github.com/todoapp/todo-api/internal/model"
	"github.com/todoapp/todo-api/internal/service"
)

// TodoHandler handles HTTP requests for todo operations.
type TodoHandler struct {
	service *service.TodoService
	log     *zap.Logger
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(svc *service.TodoService, log *zap.Logger) *TodoHandler {
	return &TodoHandler{service: svc, log: log}
}

// HandleCreate handles POST /todos requests.
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req model.CreateTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	todo, err := h.service.Create(r.Context(), user.ID, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

// HandleList handles GET /todos requests.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	todos, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.TodoListResponse{Todos: todos})
}

// HandleGet handles GET /todos/{id} requests.
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	todo, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.TodoResponse{Todo: todo})
}

// HandleDelete handles DELETE /todos/{id} requests.
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	todo, err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.TodoResponse{Todo: todo})
}

// HandleUpdate handles PATCH /todos/{id} requests.
// The id is checked before the body so a malformed id always answers 400.
// An empty body is an update with no fields.
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if !isObjectIDHex(id) {
		writeError(w, r, h.log, service.ErrInvalidTodoID)
		return
	}

	var req model.UpdateTodoRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	todo, err := h.service.Update(r.Context(), user.ID, id, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.TodoResponse{Todo: todo})
}
