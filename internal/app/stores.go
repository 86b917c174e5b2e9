package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/repository"
	"github.com/todoapp/todo-api/internal/service"
)

// Stores bundles the user and todo persistence chosen by STORE_DRIVER.
type Stores struct {
	Users service.UserStore
	Todos service.TodoStore
	Close func(ctx context.Context) error
}

// MemoryStores returns fresh in-process stores.
func MemoryStores() Stores {
	return Stores{
		Users: repository.NewMemoryUserRepository(),
		Todos: repository.NewMemoryTodoRepository(),
		Close: func(context.Context) error { return nil },
	}
}

// OpenStores connects to the configured backend and prepares its schema or indexes.
func OpenStores(ctx context.Context, cfg config.Config, log *zap.Logger) (Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := repository.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return Stores{}, err
		}
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return Stores{}, err
		}
		log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
		return Stores{
			Users: repository.NewMongoUserRepository(db),
			Todos: repository.NewMongoTodoRepository(db),
			Close: client.Disconnect,
		}, nil

	case config.StoreMySQL:
		db, err := repository.NewDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return Stores{}, err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return Stores{}, err
		}
		log.Info("connected to mysql")
		return Stores{
			Users: repository.NewUserRepository(db),
			Todos: repository.NewTodoRepository(db),
			Close: func(context.Context) error { return db.Close() },
		}, nil

	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return MemoryStores(), nil
	}

	return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
