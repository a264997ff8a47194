package services

import (
	"testing"

	"tile-event-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSubmissionService(db *gorm.DB) *SubmissionService {
	return NewSubmissionService(
		db,
		NewTileService(db),
		NewVerifierService(0.80, 0.50),
		NewProgressionService(db),
		NewWebhookService(),
	)
}

func TestSubmit_AutoApproveAdvancesFrontier(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "Summer Bingo")
	tiles := seedTiles(t, db, event.ID, "t0", "t1", "t2")
	require.NoError(t, db.Model(&models.Tile{}).Where("id = ?", tiles[0].ID).
		Update("unlock_rule", "dragon,pet").Error)

	sub, err := svc.Submit(event.ID, SubmitInput{
		DiscordID:    "discord-1",
		TilePosition: 0,
		OCRText:      "You received a pet",
		AIConfidence: 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionApproved, sub.Status)
	require.NotNil(t, sub.TileKeywordPass)
	require.True(t, *sub.TileKeywordPass)

	var p models.Participant
	require.NoError(t, db.Where("event_id = ? AND discord_id = ?", event.ID, "discord-1").First(&p).Error)
	require.Equal(t, []int{0}, p.Unlocked)
	require.Nil(t, p.CompletedAt)
}

func TestSubmit_LowConfidenceStaysPending(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	tiles := seedTiles(t, db, event.ID, "t0")
	require.NoError(t, db.Model(&models.Tile{}).Where("id = ?", tiles[0].ID).
		Update("unlock_rule", "pet").Error)

	sub, err := svc.Submit(event.ID, SubmitInput{
		DiscordID:    "discord-1",
		TilePosition: 0,
		OCRText:      "You received a pet",
		AIConfidence: 0.3,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)

	var p models.Participant
	require.NoError(t, db.Where("event_id = ?", event.ID).First(&p).Error)
	require.Empty(t, p.Unlocked)
}

func TestSubmit_MissingEventKeywordRejects(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	require.NoError(t, db.Model(event).Update("required_keyword", "IronClan").Error)
	tiles := seedTiles(t, db, event.ID, "t0")
	require.NoError(t, db.Model(&models.Tile{}).Where("id = ?", tiles[0].ID).
		Update("unlock_rule", "pet").Error)

	sub, err := svc.Submit(event.ID, SubmitInput{
		DiscordID:    "discord-1",
		TilePosition: 0,
		OCRText:      "You received a pet",
		AIConfidence: 0.99,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionRejected, sub.Status)
	require.NotNil(t, sub.EventKeywordPass)
	require.False(t, *sub.EventKeywordPass)
}

func TestSubmit_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	seedTiles(t, db, event.ID, "t0")

	_, err := svc.Submit(event.ID, SubmitInput{TilePosition: 0})
	require.ErrorIs(t, err, ErrValidation, "missing discord_id")

	_, err = svc.Submit(event.ID, SubmitInput{DiscordID: "d", TilePosition: 0, AIConfidence: 1.5})
	require.ErrorIs(t, err, ErrValidation, "confidence out of range")

	_, err = svc.Submit(event.ID, SubmitInput{DiscordID: "d", TilePosition: 9})
	require.ErrorIs(t, err, ErrNotFound, "no tile at position")

	require.NoError(t, db.Model(event).Update("active", false).Error)
	_, err = svc.Submit(event.ID, SubmitInput{DiscordID: "d", TilePosition: 0})
	require.ErrorIs(t, err, ErrConflict, "inactive event")
}

func TestReview_ApprovalAppliesProgressionOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	seedTiles(t, db, event.ID, "t0", "t1")

	sub, err := svc.Submit(event.ID, SubmitInput{
		DiscordID:    "discord-1",
		TilePosition: 0,
		OCRText:      "blurry screenshot",
		AIConfidence: 0.6,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)

	reviewed, err := svc.Review(sub.ID, models.SubmissionApproved, "looks fine", "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionApproved, reviewed.Status)
	require.Equal(t, "admin-1", reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)

	var p models.Participant
	require.NoError(t, db.Where("event_id = ?", event.ID).First(&p).Error)
	require.Equal(t, []int{0}, p.Unlocked)

	// Re-reviewing a terminal submission conflicts and changes nothing.
	_, err = svc.Review(sub.ID, models.SubmissionRejected, "", "admin-2")
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, db.Where("event_id = ?", event.ID).First(&p).Error)
	require.Equal(t, []int{0}, p.Unlocked)
}

func TestReview_RequiresTerminalStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)

	_, err := svc.Review("whatever", models.SubmissionPending, "", "admin-1")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Review("missing", models.SubmissionRejected, "", "admin-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSubmission_OnlyTerminal(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	seedTiles(t, db, event.ID, "t0")

	sub, err := svc.Submit(event.ID, SubmitInput{
		DiscordID:    "discord-1",
		TilePosition: 0,
		OCRText:      "pending proof",
		AIConfidence: 0.6,
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteSubmission(sub.ID), ErrConflict)

	_, err = svc.Review(sub.ID, models.SubmissionRejected, "not it", "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSubmission(sub.ID))
	require.ErrorIs(t, svc.DeleteSubmission(sub.ID), ErrNotFound)
}

func TestListSubmissions_StatusFilter(t *testing.T) {
	db := newTestDB(t)
	svc := newSubmissionService(db)
	event := seedEvent(t, db, "bingo")
	tiles := seedTiles(t, db, event.ID, "t0")
	require.NoError(t, db.Model(&models.Tile{}).Where("id = ?", tiles[0].ID).
		Update("unlock_rule", "pet").Error)

	_, err := svc.Submit(event.ID, SubmitInput{DiscordID: "d1", TilePosition: 0, OCRText: "a pet", AIConfidence: 0.95})
	require.NoError(t, err)
	_, err = svc.Submit(event.ID, SubmitInput{DiscordID: "d2", TilePosition: 0, OCRText: "nothing", AIConfidence: 0.95})
	require.NoError(t, err)

	all, err := svc.ListSubmissions(event.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := svc.ListSubmissions(event.ID, models.SubmissionPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.ListSubmissions(event.ID, models.SubmissionStatus("weird"))
	require.ErrorIs(t, err, ErrValidation)
}
