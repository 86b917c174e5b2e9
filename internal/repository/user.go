package repository

import (
	"context"
	"database/sql"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/model"
)

// UserRepository persists users in MySQL. Issued tokens live in the
// user_tokens table, one row per session.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets a freshly generated ID on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	id := primitive.NewObjectID()
	query := `INSERT INTO users (id, email, password) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, id.Hex(), user.Email, user.Password); err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	user.ID = id
	user.Tokens = []model.Token{}
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password FROM users WHERE email = ?`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	query := `SELECT id, email, password FROM users WHERE id = ?`
	return r.getOne(ctx, query, id.Hex())
}

// GetByToken retrieves the user with the given ID only if it holds the token.
func (r *UserRepository) GetByToken(ctx context.Context, id primitive.ObjectID, access, token string) (*model.User, error) {
	query := `SELECT u.id, u.email, u.password FROM users u
		JOIN user_tokens t ON t.user_id = u.id
		WHERE u.id = ? AND t.access = ? AND t.token = ?
		LIMIT 1`
	return r.getOne(ctx, query, id.Hex(), access, token)
}

// AddToken appends a token to the user's session list.
func (r *UserRepository) AddToken(ctx context.Context, id primitive.ObjectID, token model.Token) error {
	query := `INSERT INTO user_tokens (user_id, access, token) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, id.Hex(), token.Access, token.Token); err != nil {
		var exists int
		if qerr := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id.Hex()).Scan(&exists); errors.Is(qerr, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// RemoveToken deletes every session row matching token for the user.
func (r *UserRepository) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	query := `DELETE FROM user_tokens WHERE user_id = ? AND token = ?`
	_, err := r.db.ExecContext(ctx, query, id.Hex(), token)
	return err
}

// Delete removes the user; its session rows go with it through the foreign key.
func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.Hex())
	return err
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var rawID string
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rawID, &user.Email, &user.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.ID, err = parseID(rawID); err != nil {
		return nil, err
	}

	tokens, err := r.tokens(ctx, rawID)
	if err != nil {
		return nil, err
	}
	user.Tokens = tokens

	return user, nil
}

func (r *UserRepository) tokens(ctx context.Context, userID string) ([]model.Token, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT access, token FROM user_tokens WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []model.Token{}
	for rows.Next() {
		var t model.Token
		if err := rows.Scan(&t.Access, &t.Token); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}
