package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tile-event-system/models"
)

// WebhookService renders per-event announcement templates and delivers them to
// the event's Discord-compatible webhook. Delivery is fire-and-forget: it
// never blocks the review path and never rolls anything back on failure.
type WebhookService struct {
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

func NewWebhookService() *WebhookService {
	return &WebhookService{
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		backoff:     time.Second,
	}
}

// NotifyContext carries everything a template placeholder can reference.
type NotifyContext struct {
	Event       *models.Event
	Tile        *models.Tile
	Participant *models.Participant
	Member      *models.ClanMember // nil when the identity mirror has no row yet
	Submission  *models.Submission
}

// ValidateTemplate strictly parses an admin-supplied template before it is
// persisted: it must be exactly one JSON object. Placeholders live inside
// string literals, so a well-formed template parses as-is.
func ValidateTemplate(raw string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%w: webhook template is not a JSON object: %v", ErrValidation, err)
	}
	return nil
}

// Notify renders the payload for ctx and delivers it in the background.
func (s *WebhookService) Notify(ctx NotifyContext) {
	if ctx.Event.WebhookURL == "" {
		return
	}
	payload := s.render(ctx)
	go s.deliver(ctx.Event.WebhookURL, payload)
}

// render substitutes placeholders into the event's template. Every value goes
// in as a JSON-escaped string fragment — OCR text and usernames are
// user-influenced and may carry quotes, backslashes or newlines that would
// otherwise corrupt the payload or inject into unrelated fields. If the
// substituted result is not valid JSON, or no template is configured, the
// hard-coded default embed is used instead.
func (s *WebhookService) render(ctx NotifyContext) []byte {
	if ctx.Event.WebhookTemplate == "" {
		return s.defaultPayload(ctx)
	}
	out := ctx.Event.WebhookTemplate
	for name, value := range s.placeholders(ctx) {
		out = strings.ReplaceAll(out, "{"+name+"}", escapeJSONFragment(value))
	}
	if !json.Valid([]byte(out)) {
		log.Printf("[WEBHOOK] event %s: substituted template is not valid JSON, using default embed", ctx.Event.ID)
		return s.defaultPayload(ctx)
	}
	return []byte(out)
}

func (s *WebhookService) placeholders(ctx NotifyContext) map[string]string {
	username, userID := "", ""
	if ctx.Member != nil {
		username = ctx.Member.Username
	}
	rsn := ""
	if ctx.Participant != nil {
		rsn = ctx.Participant.RSN
		userID = ctx.Participant.DiscordID
	}
	rsnOrUsername := rsn
	if rsnOrUsername == "" {
		rsnOrUsername = username
	}

	sub := ctx.Submission
	now := time.Now().UTC()

	return map[string]string{
		"rsn":                  rsn,
		"rsn_or_username":      rsnOrUsername,
		"username":             username,
		"user_id":              userID,
		"event_name":           ctx.Event.Name,
		"event_id":             ctx.Event.ID,
		"tile_title":           ctx.Tile.Title,
		"tile_position":        strconv.Itoa(ctx.Tile.Position),
		"status":               statusLabel(sub.Status),
		"status_raw":           string(sub.Status),
		"ocr_status":           passFail(sub.TileKeywordPass),
		"ocr_result":           matchLabel(sub.TileKeywordPass),
		"event_keyword_status": passFail(sub.EventKeywordPass),
		"tile_keyword_status":  passFail(sub.TileKeywordPass),
		"image_url":            sub.ImageURL,
		"ocr_text":             sub.OCRText,
		"timestamp":            strconv.FormatInt(now.Unix(), 10),
		"iso_timestamp":        now.Format(time.RFC3339),
	}
}

// defaultPayload is the built-in Discord embed used when no template is
// configured or a configured one renders to invalid JSON.
func (s *WebhookService) defaultPayload(ctx NotifyContext) []byte {
	ph := s.placeholders(ctx)
	color := 0xF1C40F // pending: gold
	switch ctx.Submission.Status {
	case models.SubmissionApproved:
		color = 0x2ECC71 // green
	case models.SubmissionRejected:
		color = 0xE74C3C // red
	}
	payload := discordWebhookPayload{
		Username: ctx.Event.Name,
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("Tile %s: %s", ph["tile_position"], ctx.Tile.Title),
			Description: fmt.Sprintf("Submission by **%s** — %s", ph["rsn_or_username"], ph["status"]),
			Color:       color,
			Fields: []discordField{
				{Name: "Event keyword", Value: ph["event_keyword_status"], Inline: true},
				{Name: "Tile keywords", Value: ph["tile_keyword_status"], Inline: true},
			},
			Image:     &discordImage{URL: ctx.Submission.ImageURL},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Footer:    &discordFooter{Text: ctx.Event.Name},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WEBHOOK] marshal error: %v", err)
		return nil
	}
	return body
}

// deliver posts the payload with bounded retries and doubling backoff, then
// drops it. Failures are logged, never surfaced to the participant.
func (s *WebhookService) deliver(webhookURL string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	backoff := s.backoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.client.Post(webhookURL, "application/json", bytes.NewReader(payload))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 400 {
				return
			}
			err = fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		log.Printf("[WEBHOOK] attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
		if attempt < s.maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	log.Printf("[WEBHOOK] giving up after %d attempts", s.maxAttempts)
}

// escapeJSONFragment returns value as it would appear inside a JSON string
// literal (marshalled, surrounding quotes stripped).
func escapeJSONFragment(value string) string {
	b, _ := json.Marshal(value)
	return string(b[1 : len(b)-1])
}

func statusLabel(s models.SubmissionStatus) string {
	switch s {
	case models.SubmissionApproved:
		return "Approved"
	case models.SubmissionRejected:
		return "Rejected"
	default:
		return "Pending review"
	}
}

func passFail(b *bool) string {
	switch {
	case b == nil:
		return "n/a"
	case *b:
		return "pass"
	default:
		return "fail"
	}
}

func matchLabel(b *bool) string {
	if b != nil && *b {
		return "match"
	}
	return "no match"
}

// Discord embed shapes for the default payload.
type discordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Image       *discordImage  `json:"image,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordImage struct {
	URL string `json:"url"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}
