package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"tile-event-system/models"
	"tile-event-system/utils"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// SheetService imports an event's tile path from an external spreadsheet
// source. The import is a destructive, idempotent replace: re-running it on
// unchanged source data produces the identical tile list, and concurrent
// readers only ever see the old complete list or the new one. Any fetch or
// parse failure aborts before TileService is touched.
type SheetService struct {
	DB      *gorm.DB
	Tiles   *TileService
	client  *http.Client
	baseURL string
}

func NewSheetService(db *gorm.DB, tiles *TileService) *SheetService {
	return &SheetService{
		DB:      db,
		Tiles:   tiles,
		client:  utils.HTTPClient,
		baseURL: "https://docs.google.com/spreadsheets/d",
	}
}

// Sheet column layout: row 0 is the header. The legacy Reward column is
// accepted and ignored.
const (
	colTitle       = "title"
	colDescription = "description"
	colImageURL    = "image url"
	colKeywords    = "keywords"
)

// SyncEvent fetches the event's configured sheet, parses it and atomically
// replaces the event's tile path.
func (s *SheetService) SyncEvent(eventID string) ([]models.Tile, error) {
	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return nil, err
	}
	if event.SheetID == "" {
		return nil, fmt.Errorf("%w: event has no sheet source configured", ErrValidation)
	}

	data, err := s.fetch(event.SheetID)
	if err != nil {
		return nil, err
	}
	inputs, err := parseSheet(data, event.SheetTab)
	if err != nil {
		return nil, err
	}

	tiles, err := s.Tiles.ReplaceAll(eventID, inputs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.Model(&models.Event{}).Where("id = ?", eventID).
		Update("last_sheet_sync_at", &now).Error; err != nil {
		log.Printf("[SHEET_SYNC] failed to stamp sync time for event %s: %v", eventID, err)
	}
	log.Printf("[SHEET_SYNC] event %s: imported %d tiles from sheet %s", eventID, len(tiles), event.SheetID)
	return tiles, nil
}

// fetch downloads the sheet as an xlsx export.
func (s *SheetService) fetch(sheetID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/export?format=xlsx", s.baseURL, sheetID)
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("sheet source unreachable: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet source returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseSheet turns xlsx bytes into tile inputs. tabName selects the sheet;
// empty means the first sheet. Missing required header columns abort the
// import with a validation error.
func parseSheet(data []byte, tabName string) ([]TileInput, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open sheet export: %v", ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: sheet export has no tabs", ErrValidation)
	}
	sheetName := sheets[0]
	if tabName != "" {
		found := false
		for _, name := range sheets {
			if strings.EqualFold(name, tabName) {
				sheetName = name
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: tab %q not found in sheet", ErrValidation, tabName)
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read tab %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: tab %q is empty", ErrValidation, sheetName)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var inputs []TileInput
	for _, row := range rows[1:] {
		title := cell(row, cols[colTitle])
		if strings.TrimSpace(title) == "" {
			continue
		}
		inputs = append(inputs, TileInput{
			Title:               strings.TrimSpace(title),
			Description:         strings.TrimSpace(cell(row, cols[colDescription])),
			ImageURL:            strings.TrimSpace(cell(row, cols[colImageURL])),
			UnlockRule:          strings.TrimSpace(cell(row, cols[colKeywords])),
			RequiredSubmissions: 1,
		})
	}
	return inputs, nil
}

// headerIndex maps the required column names to their indices,
// case-insensitively. Unknown columns (e.g. the legacy Reward column) are
// ignored.
func headerIndex(header []string) (map[string]int, error) {
	cols := map[string]int{
		colTitle:       -1,
		colDescription: -1,
		colImageURL:    -1,
		colKeywords:    -1,
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	var missing []string
	for name, idx := range cols {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: sheet is missing required columns: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
