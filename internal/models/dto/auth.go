package dto

import "github.com/hongminglow/flous-cash-be/internal/models"

type RegisterRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FullName   string `json:"fullName" validate:"required"`
	NationalID string `json:"nationalId" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Job        string `json:"job" validate:"required"`
	Address    string `json:"address" validate:"required"`
}

// LoginRequest accepts either identifier (username or email) or the legacy username field.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}
