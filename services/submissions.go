package services

import (
	"fmt"
	"log"
	"time"

	"tile-event-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionService runs the submission pipeline: verify, persist, advance
// progression on approval, announce. Admin review flows through here too so
// terminal submissions can never be double-applied.
type SubmissionService struct {
	DB          *gorm.DB
	Tiles       *TileService
	Verifier    *VerifierService
	Progression *ProgressionService
	Webhooks    *WebhookService
}

func NewSubmissionService(db *gorm.DB, tiles *TileService, verifier *VerifierService, progression *ProgressionService, webhooks *WebhookService) *SubmissionService {
	return &SubmissionService{
		DB:          db,
		Tiles:       tiles,
		Verifier:    verifier,
		Progression: progression,
		Webhooks:    webhooks,
	}
}

// SubmitInput is one proof screenshot plus the vision pipeline's output.
type SubmitInput struct {
	DiscordID    string  `json:"discord_id"`
	TilePosition int     `json:"tile_position"`
	ImageURL     string  `json:"image_url"`
	OCRText      string  `json:"ocr_text"`
	AIConfidence float64 `json:"ai_confidence"`
}

// Submit verifies and records one submission, advancing the participant's
// frontier when the verdict auto-approves. The webhook announcement fires in
// the background whatever the verdict.
func (s *SubmissionService) Submit(eventID string, in SubmitInput) (*models.Submission, error) {
	if in.DiscordID == "" {
		return nil, fmt.Errorf("%w: discord_id is required", ErrValidation)
	}
	if in.AIConfidence < 0 || in.AIConfidence > 1 {
		return nil, fmt.Errorf("%w: ai_confidence must be within [0,1]", ErrValidation)
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return nil, err
	}
	if !event.Active {
		return nil, fmt.Errorf("%w: event %s is not active", ErrConflict, eventID)
	}

	tile, err := s.Tiles.GetTileAt(eventID, in.TilePosition)
	if err != nil {
		return nil, err
	}
	participant, err := s.Progression.EnsureParticipant(eventID, in.DiscordID)
	if err != nil {
		return nil, err
	}

	sub := models.Submission{
		ID:            uuid.NewString(),
		EventID:       eventID,
		TileID:        tile.ID,
		ParticipantID: participant.ID,
		ImageURL:      in.ImageURL,
		OCRText:       in.OCRText,
		AIConfidence:  in.AIConfidence,
		Status:        models.SubmissionPending,
	}

	verdict := s.Verifier.Verify(&sub, tile, &event)
	sub.Status = verdict.Status
	sub.EventKeywordPass = &verdict.EventKeywordPass
	sub.TileKeywordPass = &verdict.TileKeywordPass

	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	log.Printf("[VERIFY] event %s tile %d %s: %s (conf=%.2f)",
		eventID, tile.Position, in.DiscordID, sub.Status, in.AIConfidence)

	if sub.Status == models.SubmissionApproved {
		if participant, err = s.Progression.RecordApproval(eventID, participant.ID); err != nil {
			return nil, err
		}
	}

	s.notify(&event, tile, participant, &sub)
	return &sub, nil
}

// ListSubmissions returns an event's submissions, optionally filtered by
// status, newest first.
func (s *SubmissionService) ListSubmissions(eventID string, status models.SubmissionStatus) ([]models.Submission, error) {
	q := s.DB.Where("event_id = ?", eventID).Order("created_at DESC")
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		q = q.Where("status = ?", status)
	}
	var subs []models.Submission
	err := q.Find(&subs).Error
	return subs, err
}

// Review applies an admin verdict. Reviewing an already-terminal submission
// is a conflict, never a double-apply: the status check and the write happen
// in the same transaction.
func (s *SubmissionService) Review(submissionID string, status models.SubmissionStatus, notes, reviewer string) (*models.Submission, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: review status must be approved or rejected", ErrValidation)
	}

	var sub models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
			}
			return err
		}
		if sub.Status.Terminal() {
			return fmt.Errorf("%w: submission %s already %s", ErrConflict, submissionID, sub.Status)
		}
		now := time.Now()
		sub.Status = status
		sub.AdminNotes = notes
		sub.ReviewedBy = reviewer
		sub.ReviewedAt = &now
		return tx.Save(&sub).Error
	})
	if err != nil {
		return nil, err
	}

	participant, err := s.Progression.GetParticipant(sub.EventID, sub.ParticipantID)
	if err != nil {
		return nil, err
	}
	if status == models.SubmissionApproved {
		if participant, err = s.Progression.RecordApproval(sub.EventID, sub.ParticipantID); err != nil {
			return nil, err
		}
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", sub.EventID).Error; err == nil {
		if tile, tErr := s.Tiles.GetTile(sub.TileID); tErr == nil {
			s.notify(&event, tile, participant, &sub)
		}
	}
	return &sub, nil
}

// DeleteSubmission removes a submission once it is terminal; pending ones are
// still in the review pipeline and stay put.
func (s *SubmissionService) DeleteSubmission(submissionID string) error {
	var sub models.Submission
	if err := s.DB.First(&sub, "id = ?", submissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
		}
		return err
	}
	if !sub.Status.Terminal() {
		return fmt.Errorf("%w: submission %s is still pending review", ErrConflict, submissionID)
	}
	return s.DB.Unscoped().Delete(&models.Submission{}, "id = ?", submissionID).Error
}

// notify fires the webhook announcement with the identity mirror's display
// data when available.
func (s *SubmissionService) notify(event *models.Event, tile *models.Tile, participant *models.Participant, sub *models.Submission) {
	var member *models.ClanMember
	var m models.ClanMember
	if err := s.DB.Where("discord_id = ?", participant.DiscordID).First(&m).Error; err == nil {
		member = &m
	}
	s.Webhooks.Notify(NotifyContext{
		Event:       event,
		Tile:        tile,
		Participant: participant,
		Member:      member,
		Submission:  sub,
	})
}
