package model

import (
	"time"
)

// Role is a staff account role
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleNurse       Role = "nurse"
	RoleCoach       Role = "coach"
	RoleFirefighter Role = "firefighter"
)

// User represents a staff account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	Email        *string   `json:"email" db:"email"`
	Phone        *string   `json:"phone" db:"phone"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserFilter represents user search parameters
type UserFilter struct {
	Pagination
	Role   string `form:"role" binding:"omitempty,oneof=admin nurse coach firefighter"`
	Search string `form:"search"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,notblank,max=150"`
	Name     string  `json:"name" binding:"required,notblank,max=100"`
	Password string  `json:"password" binding:"required,min=8"`
	Role     Role    `json:"role" binding:"omitempty,oneof=admin nurse coach firefighter"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,notblank,max=100"`
	Role     *Role   `json:"role" binding:"omitempty,oneof=admin nurse coach firefighter"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	IsActive *bool   `json:"is_active"`
}
