package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is one clan tile event: an ordered path of tiles participants race through.
type Event struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Active      bool   `gorm:"default:true;index" json:"active"`

	// Global phrase every screenshot for this event must contain (e.g., the clan name).
	// Empty = no event-level gate.
	RequiredKeyword string `json:"required_keyword"`

	// Webhook announcement settings. WebhookTemplate is raw JSON text with
	// {placeholder} markers; validated strictly at save time.
	WebhookURL      string `gorm:"type:text" json:"webhook_url"`
	WebhookTemplate string `gorm:"type:text" json:"webhook_template"`

	// External sheet source for bulk tile import.
	SheetID         string     `json:"sheet_id"`
	SheetTab        string     `json:"sheet_tab"`
	SheetAutoSync   bool       `gorm:"default:false" json:"sheet_auto_sync"`
	LastSheetSyncAt *time.Time `json:"last_sheet_sync_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
