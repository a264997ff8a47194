package models

import "time"

// SubmissionStatus is the verdict state of a submission. Approved and rejected
// are terminal.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionApproved || s == SubmissionRejected
}

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionPending || s == SubmissionApproved || s == SubmissionRejected
}

// Submission is one screenshot proof for one (tile, participant) pair. The
// vision pipeline runs upstream; the engine receives its OCR text and
// confidence alongside the opaque image URL.
type Submission struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	EventID       string `gorm:"index;not null" json:"event_id"`
	TileID        string `gorm:"index;not null" json:"tile_id"`
	ParticipantID string `gorm:"index;not null" json:"participant_id"`

	ImageURL     string  `gorm:"type:text" json:"image_url"`
	OCRText      string  `gorm:"type:text" json:"ocr_text"`
	AIConfidence float64 `json:"ai_confidence"`

	Status SubmissionStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	// Sub-check results from verification, kept for announcement placeholders.
	EventKeywordPass *bool `json:"event_keyword_pass,omitempty"`
	TileKeywordPass  *bool `json:"tile_keyword_pass,omitempty"`

	AdminNotes string     `gorm:"type:text" json:"admin_notes"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	Timestamps
}
