package services

import (
	"testing"

	"tile-event-system/models"

	"github.com/stretchr/testify/require"
)

func TestUnlockRule_Matches(t *testing.T) {
	tests := []struct {
		name string
		rule string
		text string
		want bool
	}{
		{name: "any keyword present", rule: "dragon,pet", text: "You received a pet", want: true},
		{name: "whole word not substring", rule: "dragon,pet", text: "a predator appears", want: false},
		{name: "case insensitive", rule: "dragon", text: "DRAGON slain!", want: true},
		{name: "all requires every keyword", rule: "all:dragon,pet", text: "dragon dropped a pet", want: true},
		{name: "all fails with one missing", rule: "all:dragon,pet", text: "dragon slain", want: false},
		{name: "exact phrase literal", rule: "exact:funny feeling", text: "You have a funny feeling like you're being followed", want: true},
		{name: "exact phrase words apart", rule: "exact:funny feeling", text: "funny old feeling", want: false},
		{name: "exact not split into words", rule: "exact:funny feeling", text: "feeling funny", want: false},
		{name: "empty rule never matches", rule: "", text: "anything at all", want: false},
		{name: "blank rule never matches", rule: " , ,", text: "anything at all", want: false},
		{name: "punctuation is a word boundary", rule: "pet", text: "You received a pet!", want: true},
		{name: "mixed exact and keyword or", rule: "exact:funny feeling,dragon", text: "dragon slain", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := parseUnlockRule(tt.rule)
			require.Equal(t, tt.want, rule.matches(tt.text))
		})
	}
}

func TestParseUnlockRule_AllPrefixKeepsKeyword(t *testing.T) {
	rule := parseUnlockRule("all:dragon,pet")
	require.True(t, rule.RequireAll)
	require.Equal(t, []string{"dragon", "pet"}, rule.Keywords)
}

func TestVerify_VerdictCombination(t *testing.T) {
	verifier := NewVerifierService(0.80, 0.50)
	event := &models.Event{ID: "e1", Name: "Summer Bingo"}
	tile := &models.Tile{ID: "t1", UnlockRule: "dragon,pet"}

	tests := []struct {
		name       string
		ocr        string
		confidence float64
		keyword    string
		wantStatus models.SubmissionStatus
		wantEvent  bool
		wantTile   bool
	}{
		{
			name: "match with high confidence approves",
			ocr:  "You received a pet", confidence: 0.9,
			wantStatus: models.SubmissionApproved, wantEvent: true, wantTile: true,
		},
		{
			name: "match with low confidence stays pending",
			ocr:  "You received a pet", confidence: 0.3,
			wantStatus: models.SubmissionPending, wantEvent: true, wantTile: true,
		},
		{
			name: "match between floors stays pending",
			ocr:  "You received a pet", confidence: 0.65,
			wantStatus: models.SubmissionPending, wantEvent: true, wantTile: true,
		},
		{
			name: "no keyword match stays pending even at high confidence",
			ocr:  "nothing interesting here", confidence: 0.99,
			wantStatus: models.SubmissionPending, wantEvent: true, wantTile: false,
		},
		{
			name: "missing event keyword rejects regardless of confidence",
			ocr:  "You received a pet", confidence: 0.99, keyword: "IronClan",
			wantStatus: models.SubmissionRejected, wantEvent: false, wantTile: false,
		},
		{
			name: "event keyword present proceeds to rule",
			ocr:  "IronClan: You received a pet", confidence: 0.9, keyword: "IronClan",
			wantStatus: models.SubmissionApproved, wantEvent: true, wantTile: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event.RequiredKeyword = tt.keyword
			sub := &models.Submission{OCRText: tt.ocr, AIConfidence: tt.confidence}
			v := verifier.Verify(sub, tile, event)
			require.Equal(t, tt.wantStatus, v.Status)
			require.Equal(t, tt.wantEvent, v.EventKeywordPass)
			require.Equal(t, tt.wantTile, v.TileKeywordPass)
		})
	}
}

func TestVerify_EmptyRuleNeverAutoApproves(t *testing.T) {
	verifier := NewVerifierService(0.80, 0.50)
	event := &models.Event{ID: "e1"}
	tile := &models.Tile{ID: "t1", UnlockRule: "   "}

	sub := &models.Submission{OCRText: "perfect screenshot", AIConfidence: 1.0}
	v := verifier.Verify(sub, tile, event)
	require.Equal(t, models.SubmissionPending, v.Status)
	require.False(t, v.TileKeywordPass)
}
