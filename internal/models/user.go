package models

import "time"

// User captures application-facing fields for a registered customer or operator.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	NationalID   string    `json:"nationalId"`
	Phone        string    `json:"phone"`
	Job          string    `json:"job"`
	Address      string    `json:"address"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}
