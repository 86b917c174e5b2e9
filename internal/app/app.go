package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/handler"
	"github.com/todoapp/todo-api/internal/middleware"
	"github.com/todoapp/todo-api/internal/service"
)

// NewRouter wires services, handlers and middleware over the given stores.
func NewRouter(cfg config.Config, stores Stores, log *zap.Logger) http.Handler {
	authService := service.NewAuthService(stores.Users, cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost)
	authHandler := handler.NewAuthHandler(authService, log)

	todoService := service.NewTodoService(stores.Todos)
	todoHandler := handler.NewTodoHandler(todoService, log)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Post("/users", authHandler.HandleRegister)
		r.Post("/users/login", authHandler.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(authService, log))

		r.Get("/users/me", authHandler.HandleMe)
		r.Delete("/users/me/token", authHandler.HandleLogout)

		r.Post("/todos", todoHandler.HandleCreate)
		r.Get("/todos", todoHandler.HandleList)
		r.Get("/todos/{id}", todoHandler.HandleGet)
		r.Delete("/todos/{id}", todoHandler.HandleDelete)
		r.Patch("/todos/{id}", todoHandler.HandleUpdate)
	})

	return r
}

// Run opens the stores, serves HTTP until ctx is cancelled and then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Error("closing store", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, stores, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
