package models

import (
	"time"
)

// Participant is one clan member's progress in one event. Unlocked normally
// forms the contiguous prefix {0..k}; k is the frontier.
type Participant struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	EventID   string `gorm:"index:idx_participants_event_discord,unique;not null" json:"event_id"`
	DiscordID string `gorm:"index:idx_participants_event_discord,unique;not null" json:"discord_id"`

	// RuneScape name, supplied by the participant. Falls back to the Discord
	// username in announcements when empty.
	RSN string `json:"rsn"`

	Unlocked    []int      `gorm:"type:jsonb;serializer:json" json:"unlocked"`
	SkipsUsed   int        `gorm:"default:0" json:"skips_used"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// Frontier returns the highest contiguous unlocked position, or -1.
func (p *Participant) Frontier() int {
	return len(p.Unlocked) - 1
}

// HasUnlocked reports whether position is in the unlocked set.
func (p *Participant) HasUnlocked(position int) bool {
	for _, u := range p.Unlocked {
		if u == position {
			return true
		}
	}
	return false
}
