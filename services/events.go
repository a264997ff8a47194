package services

import (
	"fmt"

	"tile-event-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EventService owns event lifecycle and settings. Webhook templates are
// validated strictly here, at save time — a malformed template is never
// persisted to fail later at send time.
type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// EventInput carries admin-editable event settings.
type EventInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Active          *bool  `json:"active"`
	RequiredKeyword string `json:"required_keyword"`
	WebhookURL      string `json:"webhook_url"`
	WebhookTemplate string `json:"webhook_template"`
	SheetID         string `json:"sheet_id"`
	SheetTab        string `json:"sheet_tab"`
	SheetAutoSync   *bool  `json:"sheet_auto_sync"`
}

func (in *EventInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if in.WebhookTemplate != "" {
		if err := ValidateTemplate(in.WebhookTemplate); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventService) CreateEvent(in EventInput) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	event := models.Event{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Slug:            slug.Make(in.Name),
		Description:     in.Description,
		Active:          true,
		RequiredKeyword: in.RequiredKeyword,
		WebhookURL:      in.WebhookURL,
		WebhookTemplate: in.WebhookTemplate,
		SheetID:         in.SheetID,
		SheetTab:        in.SheetTab,
	}
	if in.Active != nil {
		event.Active = *in.Active
	}
	if in.SheetAutoSync != nil {
		event.SheetAutoSync = *in.SheetAutoSync
	}
	if err := s.DB.Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) GetEvent(eventID string) (*models.Event, error) {
	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return nil, err
	}
	return &event, nil
}

func (s *EventService) ListEvents(activeOnly bool) ([]models.Event, error) {
	q := s.DB.Order("created_at DESC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var events []models.Event
	err := q.Find(&events).Error
	return events, err
}

func (s *EventService) UpdateEvent(eventID string, in EventInput) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	event, err := s.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event.Name != in.Name {
		event.Name = in.Name
		event.Slug = slug.Make(in.Name)
	}
	event.Description = in.Description
	event.RequiredKeyword = in.RequiredKeyword
	event.WebhookURL = in.WebhookURL
	event.WebhookTemplate = in.WebhookTemplate
	event.SheetID = in.SheetID
	event.SheetTab = in.SheetTab
	if in.Active != nil {
		event.Active = *in.Active
	}
	if in.SheetAutoSync != nil {
		event.SheetAutoSync = *in.SheetAutoSync
	}
	if err := s.DB.Save(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent removes the event and cascades to its tiles, participants and
// submissions in one transaction.
func (s *EventService) DeleteEvent(eventID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Delete(&models.Event{}, "id = ?", eventID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		for _, model := range []any{&models.Tile{}, &models.Participant{}, &models.Submission{}} {
			if err := tx.Unscoped().Where("event_id = ?", eventID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
