package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewDB creates a new MySQL database connection pool with the given DSN.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         CHAR(24)     NOT NULL PRIMARY KEY,
		email      VARCHAR(255) NOT NULL,
		password   VARCHAR(255) NOT NULL,
		created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS user_tokens (
		id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(24)     NOT NULL,
		access     VARCHAR(32)  NOT NULL,
		token      VARCHAR(1024) NOT NULL,
		created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_user_tokens_user (user_id),
		CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id           CHAR(24) NOT NULL PRIMARY KEY,
		creator      CHAR(24) NOT NULL,
		text         TEXT     NOT NULL,
		completed    BOOLEAN  NOT NULL DEFAULT FALSE,
		completed_at BIGINT   NULL,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_todos_creator (creator)
	)`,
}

// Migrate creates the tables used by the MySQL repositories if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("stored id %q: %w", hex, err)
	}
	return id, nil
}
