package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/apperr"
	"github.com/todoapp/todo-api/internal/model"
)

// AuthHeader carries the session token on requests and on register/login responses.
const AuthHeader = "x-auth"

type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

// Authenticator resolves a raw token to the user holding it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// TokenAuth returns middleware that resolves the x-auth header to a user.
// Unauthenticated requests get 401 with an empty body and never reach next.
func TokenAuth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AuthHeader)

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindAuth {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				log.Error("token resolution failed", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// TokenFromContext extracts the token the request authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// WithUser returns a copy of ctx carrying user and token, as TokenAuth would.
func WithUser(ctx context.Context, user *model.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}
