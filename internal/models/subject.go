package models

import "time"

// Subject is a course-like listing.
type Subject struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	LinkToCall  string `gorm:"size:2048" json:"link_to_call"`
	Description string `gorm:"type:text" json:"description"`
	// Details carries free-form descriptive fields the app does not interpret.
	Details   map[string]string `gorm:"serializer:json" json:"details,omitempty"`
	Image     string            `gorm:"size:512" json:"image"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
