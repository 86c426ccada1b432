// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered account. Username and email are unique.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:30;not null;uniqueIndex:idx_users_username" json:"username"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
