package models

// Tile is one ordered task on an event's path. Positions are 0-indexed and
// contiguous within an event: after every mutation they are exactly 0..N-1.
type Tile struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	EventID string `gorm:"index:idx_tiles_event_position;not null" json:"event_id"`

	// Contiguity is enforced transactionally by TileService; the index is
	// non-unique so renumbering shifts never trip a transient collision.
	Position    int    `gorm:"index:idx_tiles_event_position;not null" json:"position"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`

	// UnlockRule is the keyword DSL evaluated against OCR text:
	// comma-separated keywords (OR), "exact:<phrase>" for a literal phrase,
	// "all:" anywhere in the list to require every keyword.
	UnlockRule string `gorm:"type:text" json:"unlock_rule"`

	// Approved submissions needed before the tile counts as done.
	RequiredSubmissions int `gorm:"default:1" json:"required_submissions"`

	Timestamps
}
