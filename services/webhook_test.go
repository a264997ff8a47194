package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tile-event-system/models"

	"github.com/stretchr/testify/require"
)

func notifyContextFixture(template string) NotifyContext {
	eventPass := true
	tilePass := true
	return NotifyContext{
		Event: &models.Event{
			ID:              "ev-1",
			Name:            "Summer Bingo",
			WebhookURL:      "https://discord.example/webhook",
			WebhookTemplate: template,
		},
		Tile: &models.Tile{ID: "tile-1", Position: 2, Title: "Dragon pet"},
		Participant: &models.Participant{
			ID:        "part-1",
			DiscordID: "123456789",
			RSN:       "Zezima",
		},
		Member: &models.ClanMember{DiscordID: "123456789", Username: "zezima#0001"},
		Submission: &models.Submission{
			ID:               "sub-1",
			ImageURL:         "https://cdn.example/proof.png",
			OCRText:          `He said "gz"`,
			Status:           models.SubmissionApproved,
			EventKeywordPass: &eventPass,
			TileKeywordPass:  &tilePass,
		},
	}
}

func TestRender_EscapesUserText(t *testing.T) {
	s := NewWebhookService()
	ctx := notifyContextFixture(`{"content":"{rsn_or_username} said: {ocr_text}"}`)

	payload := s.render(ctx)
	require.True(t, json.Valid(payload), "payload must stay valid JSON: %s", payload)

	var out struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, `Zezima said: He said "gz"`, out.Content)
}

func TestRender_PlaceholderSubstitution(t *testing.T) {
	s := NewWebhookService()
	ctx := notifyContextFixture(`{"content":"{event_name} tile {tile_position}: {status_raw} ({event_keyword_status}/{tile_keyword_status})"}`)

	var out struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(s.render(ctx), &out))
	require.Equal(t, "Summer Bingo tile 2: approved (pass/pass)", out.Content)
}

func TestRender_RSNFallbackChain(t *testing.T) {
	s := NewWebhookService()
	ctx := notifyContextFixture(`{"content":"{rsn_or_username}"}`)
	ctx.Participant.RSN = ""

	var out struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(s.render(ctx), &out))
	require.Equal(t, "zezima#0001", out.Content)
}

func TestRender_BrokenTemplateFallsBackToDefaultEmbed(t *testing.T) {
	s := NewWebhookService()
	// Placeholder outside a string literal: substitution cannot produce
	// valid JSON because the fragment is not quoted.
	ctx := notifyContextFixture(`{"content": {ocr_text}}`)

	payload := s.render(ctx)
	require.True(t, json.Valid(payload))

	var out struct {
		Embeds []map[string]any `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Len(t, out.Embeds, 1)
}

func TestRender_NoTemplateUsesDefault(t *testing.T) {
	s := NewWebhookService()
	ctx := notifyContextFixture("")

	var out struct {
		Embeds []map[string]any `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(s.render(ctx), &out))
	require.Len(t, out.Embeds, 1)
}

func TestValidateTemplate(t *testing.T) {
	require.NoError(t, ValidateTemplate(`{"embeds":[{"title":"{tile_title}"}]}`))
	require.ErrorIs(t, ValidateTemplate(`{"unclosed":`), ErrValidation)
	require.ErrorIs(t, ValidateTemplate(`[1,2,3]`), ErrValidation)
	require.ErrorIs(t, ValidateTemplate(`{"a":1} trailing`), ErrValidation)
}

func TestDeliver_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookService()
	s.backoff = time.Millisecond
	s.deliver(srv.URL, []byte(`{"embeds":[]}`))
	require.EqualValues(t, 3, calls.Load())
}

func TestDeliver_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewWebhookService()
	s.backoff = time.Millisecond
	s.deliver(srv.URL, []byte(`{"embeds":[]}`))
	require.EqualValues(t, 3, calls.Load())
}
