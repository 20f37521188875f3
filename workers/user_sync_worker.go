// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bizquits/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteUser matches one entry of the auth service's profile change feed.
type RemoteUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"account_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserChangesResponse is the top-level structure of the change feed.
type UserChangesResponse struct {
	Users []RemoteUser `json:"users"`
}

// UserSyncWorker mirrors marketplace accounts into the local users table so
// coin awards have a balance to credit. Coins are never overwritten.
type UserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://auth:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewUserSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, interval time.Duration) *UserSyncWorker {
	return &UserSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Start runs a full backfill, then incremental syncs until ctx is cancelled.
func (w *UserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Sync Worker (auth → users)…")
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Printf("❌ Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ User Sync Worker stopped")
			return
		}
	}
}

// lastSyncTime is the newest updated_at mirrored so far, deleted rows included.
func (w *UserSyncWorker) lastSyncTime() time.Time {
	var latest models.User
	err := w.db.Unscoped().Select("updated_at").Order("updated_at DESC").Limit(1).Find(&latest).Error
	if err != nil || latest.UpdatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return latest.UpdatedAt
}

// SyncBatch fetches changes since the given time and upserts them. Returns the
// number of users written.
func (w *UserSyncWorker) SyncBatch(ctx context.Context, since time.Time) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response UserChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	if len(response.Users) == 0 {
		return 0, nil
	}

	upserted, failed := 0, 0
	for _, remote := range response.Users {
		if err := w.upsert(remote); err != nil {
			failed++
			log.Printf("[SYNC] ⚠️ Failed to upsert user %s: %v", remote.ID, err)
			continue
		}
		upserted++
	}

	log.Printf("[SYNC] ✅ Synced %d user(s) (%d upserted, %d errors)", len(response.Users), upserted, failed)
	return upserted, nil
}

func (w *UserSyncWorker) upsert(remote RemoteUser) error {
	local := models.User{
		ID:        remote.ID,
		Email:     remote.Email,
		FullName:  remote.FullName,
		Role:      mapRole(remote.Role),
		UpdatedAt: remote.UpdatedAt,
	}
	if strings.EqualFold(remote.AccountStatus, "deleted") {
		local.DeletedAt = gorm.DeletedAt{Time: remote.UpdatedAt, Valid: true}
	}

	// coins stay local: they are credited here, not by the auth service
	return w.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "role", "updated_at", "deleted_at"}),
	}).Create(&local).Error
}

func mapRole(role string) models.UserRole {
	switch strings.ToLower(role) {
	case "entrepreneur":
		return models.RoleEntrepreneur
	case "admin":
		return models.RoleAdmin
	default:
		return models.RoleClient
	}
}
