package model

import "time"

// User represents a staff account.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	DivisionID   *int      `json:"division_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest is the payload for authentication. Password length rules
// apply on create and update only; any wrong password is a credentials error.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Success    bool   `json:"success"`
	Token      string `json:"token"`
	User       User   `json:"user"`
	RedirectTo string `json:"redirect_to"`
}

// CreateUserRequest is the payload for creating a staff account.
type CreateUserRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=100"`
	Name       string `json:"name" binding:"required,max=255"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	Role       string `json:"role" binding:"required,oneof=admin manager user"`
	DivisionID *int   `json:"division_id"`
}

// UpdateUserRequest is the payload for updating a staff account.
// Password is optional; an empty value keeps the current one.
type UpdateUserRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	Password   string `json:"password" binding:"omitempty,min=6,max=128"`
	Role       string `json:"role" binding:"required,oneof=admin manager user"`
	DivisionID *int   `json:"division_id"`
	IsActive   *bool  `json:"is_active"`
}
