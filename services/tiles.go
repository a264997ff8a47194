package services

import (
	"fmt"

	"tile-event-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TileService owns the ordered tile path per event. Every mutation keeps
// positions exactly 0..N-1; an edit that would break ordering is rejected,
// never silently repaired.
type TileService struct {
	DB *gorm.DB
}

func NewTileService(db *gorm.DB) *TileService {
	return &TileService{DB: db}
}

// TileInput is one tile as supplied by the admin API or the sheet importer.
// Position is advisory on bulk operations; the server reassigns it.
type TileInput struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	ImageURL            string `json:"image_url"`
	UnlockRule          string `json:"unlock_rule"`
	RequiredSubmissions int    `json:"required_submissions"`
	Position            int    `json:"position"`
}

func (in *TileInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: tile title is required", ErrValidation)
	}
	if in.RequiredSubmissions < 0 {
		return fmt.Errorf("%w: required_submissions must be >= 1", ErrValidation)
	}
	return nil
}

// ListTiles returns the event's tiles ordered by position.
func (s *TileService) ListTiles(eventID string) ([]models.Tile, error) {
	var tiles []models.Tile
	err := s.DB.Where("event_id = ?", eventID).
		Order("position ASC").
		Find(&tiles).Error
	return tiles, err
}

// CountTiles returns the number of tiles on the event's path.
func (s *TileService) CountTiles(eventID string) (int, error) {
	var count int64
	err := s.DB.Model(&models.Tile{}).Where("event_id = ?", eventID).Count(&count).Error
	return int(count), err
}

// GetTile loads one tile by ID.
func (s *TileService) GetTile(tileID string) (*models.Tile, error) {
	var tile models.Tile
	if err := s.DB.First(&tile, "id = ?", tileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: tile %s", ErrNotFound, tileID)
		}
		return nil, err
	}
	return &tile, nil
}

// GetTileAt loads the tile at a position on the event's path.
func (s *TileService) GetTileAt(eventID string, position int) (*models.Tile, error) {
	var tile models.Tile
	err := s.DB.Where("event_id = ? AND position = ?", eventID, position).First(&tile).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: no tile at position %d", ErrNotFound, position)
	}
	if err != nil {
		return nil, err
	}
	return &tile, nil
}

// CreateTile inserts a tile at the given position, shifting every tile at or
// above it up by one. Position -1 (or == N) appends at the end.
func (s *TileService) CreateTile(eventID string, in TileInput) (*models.Tile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var created models.Tile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tile{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
			return err
		}
		pos := in.Position
		if pos == -1 {
			pos = int(count)
		}
		if pos < 0 || pos > int(count) {
			return fmt.Errorf("%w: position %d out of range [0,%d]", ErrValidation, pos, count)
		}
		// Shift subsequent tiles up before inserting.
		if err := tx.Model(&models.Tile{}).
			Where("event_id = ? AND position >= ?", eventID, pos).
			UpdateColumn("position", gorm.Expr("position + 1")).Error; err != nil {
			return err
		}
		created = models.Tile{
			ID:                  uuid.NewString(),
			EventID:             eventID,
			Position:            pos,
			Title:               in.Title,
			Description:         in.Description,
			ImageURL:            in.ImageURL,
			UnlockRule:          in.UnlockRule,
			RequiredSubmissions: normalizeRequired(in.RequiredSubmissions),
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTile edits a tile's content. Position is not editable here; use
// ReplaceAll or the bulk endpoint so the caller supplies a full reordering.
func (s *TileService) UpdateTile(tileID string, in TileInput) (*models.Tile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tile, err := s.GetTile(tileID)
	if err != nil {
		return nil, err
	}
	tile.Title = in.Title
	tile.Description = in.Description
	tile.ImageURL = in.ImageURL
	tile.UnlockRule = in.UnlockRule
	tile.RequiredSubmissions = normalizeRequired(in.RequiredSubmissions)
	if err := s.DB.Save(tile).Error; err != nil {
		return nil, err
	}
	return tile, nil
}

// DeleteTile removes a tile and renumbers every subsequent tile down by one,
// in one transaction so no reader ever observes a gap.
func (s *TileService) DeleteTile(tileID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var tile models.Tile
		if err := tx.First(&tile, "id = ?", tileID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: tile %s", ErrNotFound, tileID)
			}
			return err
		}
		if err := tx.Unscoped().Delete(&models.Tile{}, "id = ?", tile.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tile{}).
			Where("event_id = ? AND position > ?", tile.EventID, tile.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

// ReplaceAll atomically swaps the event's whole tile path for the given list.
// Positions are reassigned to the array index regardless of what the inputs
// carry. Re-running with the same inputs yields the same path. Concurrent
// readers see the old list or the new list, never a partial one.
func (s *TileService) ReplaceAll(eventID string, inputs []TileInput) ([]models.Tile, error) {
	for i := range inputs {
		if err := inputs[i].validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	tiles := make([]models.Tile, 0, len(inputs))
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("event_id = ?", eventID).Delete(&models.Tile{}).Error; err != nil {
			return err
		}
		for i, in := range inputs {
			tile := models.Tile{
				ID:                  uuid.NewString(),
				EventID:             eventID,
				Position:            i,
				Title:               in.Title,
				Description:         in.Description,
				ImageURL:            in.ImageURL,
				UnlockRule:          in.UnlockRule,
				RequiredSubmissions: normalizeRequired(in.RequiredSubmissions),
			}
			if err := tx.Create(&tile).Error; err != nil {
				return err
			}
			tiles = append(tiles, tile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tiles, nil
}

func normalizeRequired(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
