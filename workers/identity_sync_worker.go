// workers/identity_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"tile-event-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredProfile matches the JSON the identity service returns per member.
type MirroredProfile struct {
	DiscordID  string    `json:"discord_id"`
	Username   string    `json:"username"`
	AvatarHash string    `json:"avatar_hash"`
	RSN        string    `json:"rsn,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the identity
// service response.
type GetProfileChangesResponse struct {
	Members []MirroredProfile `json:"members"`
}

// IdentitySyncWorker mirrors Discord display data (username, avatar, RSN)
// from the external identity service into clan_members, so announcements can
// render without a network call on the review path.
type IdentitySyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewIdentitySyncWorker(db *gorm.DB, identityServiceBaseURL, endpointPath, serviceToken string) *IdentitySyncWorker {
	return &IdentitySyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      identityServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *IdentitySyncWorker) Start(ctx context.Context) {
	log.Println("[IDENTITY_SYNC] Starting identity sync worker (identity-service → clan_members)")
	go w.run(ctx)
}

func (w *IdentitySyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("[IDENTITY_SYNC] Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("[IDENTITY_SYNC] Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("[IDENTITY_SYNC] Identity sync worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *IdentitySyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM clan_members WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches profiles changed since the cursor and upserts them into
// the local mirror.
func (w *IdentitySyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid identity service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to identity service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("identity service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode identity service response: %w", err)
	}

	if len(response.Members) == 0 {
		return nil
	}

	var upsertCount, errorCount int
	for _, profile := range response.Members {
		member := models.ClanMember{
			ID:         uuid.NewString(),
			DiscordID:  profile.DiscordID,
			Username:   profile.Username,
			AvatarHash: profile.AvatarHash,
			RSN:        profile.RSN,
		}
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "discord_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "avatar_hash", "rsn", "updated_at",
			}),
		}).Create(&member).Error; err != nil {
			errorCount++
			log.Printf("[IDENTITY_SYNC] Failed to upsert clan_member (discord_id=%q): %v", profile.DiscordID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[IDENTITY_SYNC] Synced %d member(s) since %s (%d upserted, %d errors)",
		len(response.Members), sinceStr, upsertCount, errorCount)
	return nil
}
