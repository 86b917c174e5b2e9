package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/todoapp/todo-api/internal/apperr"
	"github.com/todoapp/todo-api/internal/crypto"
	"github.com/todoapp/todo-api/internal/metrics"
	"github.com/todoapp/todo-api/internal/model"
	"github.com/todoapp/todo-api/internal/repository"
)

// UserStore is the persistence the auth service needs. It is satisfied by the
// MongoDB, MySQL and in-memory user repositories.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetByToken(ctx context.Context, id primitive.ObjectID, access, token string) (*model.User, error)
	AddToken(ctx context.Context, id primitive.ObjectID, token model.Token) error
	RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AuthService handles registration, login, logout and token resolution.
type AuthService struct {
	users      UserStore
	jwtSecret  string
	jwtExpiry  time.Duration
	bcryptCost int
	validate   *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, secret string, expiry time.Duration, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  secret,
		jwtExpiry:  expiry,
		bcryptCost: bcryptCost,
		validate:   newValidator(),
	}
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(s.validate, req); err != nil {
		return model.AuthResponse{}, err
	}

	hash, err := crypto.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResponse{}, apperr.Validation("validation failed", map[string]string{
				"password": fmt.Sprintf("must be at most %d bytes", crypto.MaxPasswordBytes),
			})
		}
		return model.AuthResponse{}, err
	}

	user := &model.User{
		Email:    req.Email,
		Password: hash,
		Tokens:   []model.Token{},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		// Without a stored token the account is unusable and its email blocked.
		if derr := s.users.Delete(ctx, user.ID); derr != nil {
			return model.AuthResponse{}, errors.Join(err, fmt.Errorf("remove user: %w", derr))
		}
		return model.AuthResponse{}, err
	}

	metrics.RegistrationsTotal.Inc()

	return model.AuthResponse{Token: token, User: user.Public()}, nil
}

// Login authenticates a user and appends a new auth token to its session list.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.LoginFailuresTotal.Inc()
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, fmt.Errorf("find user: %w", err)
	}

	match, err := crypto.VerifyPassword(req.Password, user.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		metrics.LoginFailuresTotal.Inc()
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return model.AuthResponse{}, err
	}

	metrics.LoginsTotal.Inc()

	return model.AuthResponse{Token: token, User: user.Public()}, nil
}

// Authenticate resolves a raw x-auth token to the user holding it. The token
// must verify and must still be present in the user's token list.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := crypto.ValidateToken(token, s.jwtSecret)
	if err != nil || claims.Access != model.AccessAuth {
		return nil, ErrUnauthenticated
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByToken(ctx, id, model.AccessAuth, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("find user by token: %w", err)
	}

	return user, nil
}

// Logout removes token from the user's session list.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID, token string) error {
	if err := s.users.RemoveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	metrics.LogoutsTotal.Inc()
	return nil
}

func (s *AuthService) issueToken(ctx context.Context, user *model.User) (string, error) {
	token, err := crypto.GenerateToken(user.ID.Hex(), model.AccessAuth, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	entry := model.Token{Access: model.AccessAuth, Token: token}
	if err := s.users.AddToken(ctx, user.ID, entry); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	user.Tokens = append(user.Tokens, entry)

	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
