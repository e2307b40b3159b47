// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/usersvc/usersvc/internal/model"
)

// Status labels used in every response envelope.
// "fail" denotes client input and token errors,
// "error" denotes guard rejections (unknown subject, inactive, not admin)
// and server-side failures.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// MessageResponse is the fixed {status, message} envelope.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TokenResponse is returned by login and register.
type TokenResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	AuthToken string `json:"auth_token"`
}

// CreateUserRequest represents the request body for creating a user.
// Used by both the admin create route and open registration.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

// UserEnvelope wraps a single user in the {status, data} envelope.
type UserEnvelope struct {
	Status string       `json:"status"`
	Data   UserResponse `json:"data"`
}

// UserListData holds the users array of a listing response.
type UserListData struct {
	Users []UserResponse `json:"users"`
}

// UserListEnvelope wraps a user listing in the {status, data} envelope.
type UserListEnvelope struct {
	Status string       `json:"status"`
	Data   UserListData `json:"data"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Active:    user.Active,
		Admin:     user.Admin,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserListEnvelope converts a slice of User models to a listing envelope.
func ToUserListEnvelope(users []*model.User) UserListEnvelope {
	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = ToUserResponse(user)
	}
	return UserListEnvelope{
		Status: StatusSuccess,
		Data:   UserListData{Users: responses},
	}
}
