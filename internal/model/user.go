package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// AccessAuth is the purpose tag of tokens issued on register and login.
const AccessAuth = "auth"

// User represents a user document. Password holds the bcrypt hash.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
	Tokens   []Token            `bson:"tokens"`
}

// Token is one issued session token.
type Token struct {
	Access string `bson:"access" json:"access"`
	Token  string `bson:"token" json:"token"`
}

// HasToken reports whether the user holds token with the given access tag.
func (u *User) HasToken(access, token string) bool {
	for _, t := range u.Tokens {
		if t.Access == access && t.Token == token {
			return true
		}
	}
	return false
}

// Public returns the fields safe for API responses.
func (u *User) Public() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data safe for API responses (no password, no tokens).
type UserResponse struct {
	ID    primitive.ObjectID `json:"_id"`
	Email string             `json:"email"`
}

// AuthResponse is the outcome of register and login: the public user and
// the freshly issued token, which handlers send in the x-auth header.
type AuthResponse struct {
	Token string
	User  UserResponse
}
