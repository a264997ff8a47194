package services

import (
	"testing"

	"tile-event-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own database; keep
	// the pool at one connection so all sessions see the same state.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Event{},
		&models.Tile{},
		&models.Participant{},
		&models.Submission{},
		&models.ClanMember{},
	))
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, name string) *models.Event {
	t.Helper()
	event := models.Event{
		ID:     uuid.NewString(),
		Name:   name,
		Slug:   name,
		Active: true,
	}
	require.NoError(t, db.Create(&event).Error)
	return &event
}

func seedTiles(t *testing.T, db *gorm.DB, eventID string, titles ...string) []models.Tile {
	t.Helper()
	tiles := make([]models.Tile, 0, len(titles))
	for i, title := range titles {
		tile := models.Tile{
			ID:                  uuid.NewString(),
			EventID:             eventID,
			Position:            i,
			Title:               title,
			RequiredSubmissions: 1,
		}
		require.NoError(t, db.Create(&tile).Error)
		tiles = append(tiles, tile)
	}
	return tiles
}

func seedApproved(t *testing.T, db *gorm.DB, eventID, tileID, participantID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		sub := models.Submission{
			ID:            uuid.NewString(),
			EventID:       eventID,
			TileID:        tileID,
			ParticipantID: participantID,
			Status:        models.SubmissionApproved,
		}
		require.NoError(t, db.Create(&sub).Error)
	}
}
