package service

import "github.com/todoapp/todo-api/internal/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.KindValidation, "invalid email or password")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email already taken")
	ErrUnauthenticated    = apperr.New(apperr.KindAuth, "unauthenticated")
	ErrInvalidTodoID      = apperr.New(apperr.KindValidation, "invalid todo id")
	ErrTodoNotFound       = apperr.New(apperr.KindNotFound, "todo not found")
)
