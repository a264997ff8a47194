package services

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"tile-event-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressionService tracks per-(event, participant) progress: the unlocked
// prefix, the skip counter and completion. Automatic unlocks only ever append
// the next contiguous position; admin lock cascades downward to keep the
// prefix invariant.
type ProgressionService struct {
	DB *gorm.DB

	// Serializes frontier mutations per (event, participant) so two
	// near-simultaneous approvals cannot double-count toward a tile's
	// submission threshold.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db, locks: make(map[string]*sync.Mutex)}
}

func (s *ProgressionService) lockFor(eventID, participantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := eventID + "/" + participantID
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// EnsureParticipant returns the participant row for (event, discordID),
// creating it on first interaction (idempotent).
func (s *ProgressionService) EnsureParticipant(eventID, discordID string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.Where("event_id = ? AND discord_id = ?", eventID, discordID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		p = models.Participant{
			ID:        uuid.NewString(),
			EventID:   eventID,
			DiscordID: discordID,
			Unlocked:  []int{},
		}
		if err := s.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipant loads one participant row.
func (s *ProgressionService) GetParticipant(eventID, participantID string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.Where("event_id = ? AND id = ?", eventID, participantID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns all participants of an event.
func (s *ProgressionService) ListParticipants(eventID string) ([]models.Participant, error) {
	var parts []models.Participant
	err := s.DB.Where("event_id = ?", eventID).Order("updated_at DESC").Find(&parts).Error
	return parts, err
}

// RecordApproval re-evaluates the participant's frontier after a submission
// for a tile was approved. The threshold count and the unlock decision happen
// inside one transaction under the participant's lock, so concurrent approvals
// cannot race past RequiredSubmissions or double-advance. The frontier keeps
// advancing while consecutive tiles already meet their thresholds, which also
// absorbs approvals that landed ahead of the frontier.
func (s *ProgressionService) RecordApproval(eventID, participantID string) (*models.Participant, error) {
	l := s.lockFor(eventID, participantID)
	l.Lock()
	defer l.Unlock()

	var updated *models.Participant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Participant
		if err := tx.Where("event_id = ? AND id = ?", eventID, participantID).First(&p).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
			}
			return err
		}

		var tiles []models.Tile
		if err := tx.Where("event_id = ?", eventID).Order("position ASC").Find(&tiles).Error; err != nil {
			return err
		}

		for len(p.Unlocked) < len(tiles) {
			next := tiles[len(p.Unlocked)]
			var approved int64
			if err := tx.Model(&models.Submission{}).
				Where("tile_id = ? AND participant_id = ? AND status = ?",
					next.ID, p.ID, models.SubmissionApproved).
				Count(&approved).Error; err != nil {
				return err
			}
			if approved < int64(next.RequiredSubmissions) {
				break
			}
			p.Unlocked = append(p.Unlocked, next.Position)
			log.Printf("[PROGRESS] %s unlocked tile %d (%s) in event %s", p.DiscordID, next.Position, next.Title, eventID)
		}

		s.refreshCompletion(&p, len(tiles))
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Unlock is the admin override. Contiguity policy: unlocking position k
// backfills every position up to k, so the unlocked set stays a prefix even
// when the admin jumps ahead of the frontier.
func (s *ProgressionService) Unlock(eventID, participantID string, position int) (*models.Participant, error) {
	return s.mutate(eventID, participantID, func(p *models.Participant, tileCount int) error {
		if position < 0 || position >= tileCount {
			return fmt.Errorf("%w: position %d out of range [0,%d)", ErrValidation, position, tileCount)
		}
		for pos := len(p.Unlocked); pos <= position; pos++ {
			p.Unlocked = append(p.Unlocked, pos)
		}
		return nil
	})
}

// Lock removes position and every tile above it from the unlocked set — a
// deliberate cascading truncation that restores the prefix invariant — and
// clears completion when coverage drops below full.
func (s *ProgressionService) Lock(eventID, participantID string, position int) (*models.Participant, error) {
	return s.mutate(eventID, participantID, func(p *models.Participant, tileCount int) error {
		if position < 0 {
			return fmt.Errorf("%w: position must be >= 0", ErrValidation)
		}
		kept := make([]int, 0, len(p.Unlocked))
		for _, u := range p.Unlocked {
			if u < position {
				kept = append(kept, u)
			}
		}
		p.Unlocked = kept
		return nil
	})
}

// ResetParticipant clears the unlocked set, skip counter and completion.
func (s *ProgressionService) ResetParticipant(eventID, participantID string) (*models.Participant, error) {
	return s.mutate(eventID, participantID, func(p *models.Participant, _ int) error {
		p.Unlocked = []int{}
		p.SkipsUsed = 0
		return nil
	})
}

// RemoveParticipant deletes the participant row and their submissions.
func (s *ProgressionService) RemoveParticipant(eventID, participantID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("event_id = ? AND id = ?", eventID, participantID).Delete(&models.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
		}
		return tx.Unscoped().Where("participant_id = ?", participantID).Delete(&models.Submission{}).Error
	})
}

// AdjustSkips moves the informational skip counter by delta, clamped at zero.
// It does not unlock anything; skip allowances are enforced by the bot.
func (s *ProgressionService) AdjustSkips(eventID, participantID string, delta int) (*models.Participant, error) {
	return s.mutate(eventID, participantID, func(p *models.Participant, _ int) error {
		p.SkipsUsed += delta
		if p.SkipsUsed < 0 {
			p.SkipsUsed = 0
		}
		return nil
	})
}

// SetRSN records the participant-supplied display name.
func (s *ProgressionService) SetRSN(eventID, participantID, rsn string) (*models.Participant, error) {
	return s.mutate(eventID, participantID, func(p *models.Participant, _ int) error {
		p.RSN = rsn
		return nil
	})
}

// mutate runs fn on the locked participant row inside a transaction and
// refreshes completion afterwards.
func (s *ProgressionService) mutate(eventID, participantID string, fn func(p *models.Participant, tileCount int) error) (*models.Participant, error) {
	l := s.lockFor(eventID, participantID)
	l.Lock()
	defer l.Unlock()

	var updated *models.Participant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Participant
		if err := tx.Where("event_id = ? AND id = ?", eventID, participantID).First(&p).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
			}
			return err
		}
		var tileCount int64
		if err := tx.Model(&models.Tile{}).Where("event_id = ?", eventID).Count(&tileCount).Error; err != nil {
			return err
		}
		if err := fn(&p, int(tileCount)); err != nil {
			return err
		}
		sort.Ints(p.Unlocked)
		s.refreshCompletion(&p, int(tileCount))
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// refreshCompletion sets CompletedAt exactly when the unlocked set covers the
// whole path and clears it when coverage drops below full.
func (s *ProgressionService) refreshCompletion(p *models.Participant, tileCount int) {
	if tileCount > 0 && len(p.Unlocked) == tileCount {
		if p.CompletedAt == nil {
			now := time.Now()
			p.CompletedAt = &now
			log.Printf("[PROGRESS] %s completed event %s", p.DiscordID, p.EventID)
		}
		return
	}
	p.CompletedAt = nil
}
