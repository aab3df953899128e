// workers/profile_sync_worker.go
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

	"arena-battle-system/models"
	"arena-battle-system/services"
)

// RemoteProfile matches one entry of the profile service's change feed.
type RemoteProfile struct {
	ID                string    `json:"id"`
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	AccountStatus     string    `json:"account_status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DisplayName joins first and last name, or returns "" when neither is set.
func (p RemoteProfile) DisplayName() string {
	var parts []string
	for _, s := range []*string{p.FirstName, p.LastName} {
		if s != nil && strings.TrimSpace(*s) != "" {
			parts = append(parts, strings.TrimSpace(*s))
		}
	}
	return strings.Join(parts, " ")
}

// GetProfileChangesResponse is the top-level structure of the feed response.
type GetProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker mirrors usernames, display names and avatars from the
// profile service so narration can use them.
type ProfileSyncWorker struct {
	store        services.ProfileStore
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewProfileSyncWorker(store services.ProfileStore, baseURL, endpointPath, serviceToken string, interval time.Duration, client *http.Client) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProfileSyncWorker{
		store:        store,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   client,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Profile Sync Worker (profile-service → arena_users)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial sync from the beginning of time
	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			since, err := w.store.LastProfileUpdate(ctx)
			if err != nil {
				log.Printf("[SYNC] ⚠️ %v, syncing from epoch", err)
				since = time.Unix(0, 0)
			}
			if _, err := w.SyncOnce(ctx, since); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// SyncOnce fetches profile changes since the given time and upserts them.
// It returns how many profiles were written.
func (w *ProfileSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	profiles, err := w.fetch(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		log.Printf("[SYNC] ✅ No profile changes since %s", since.UTC().Format(time.RFC3339))
		return 0, nil
	}

	users := make([]models.ArenaUser, 0, len(profiles))
	for _, p := range profiles {
		if p.ExternalID == "" {
			log.Printf("[SYNC] ⚠️ Skipping profile %q without external_id", p.ID)
			continue
		}
		users = append(users, models.ArenaUser{
			ExternalUserID: p.ExternalID,
			Username:       p.Username,
			DisplayName:    p.DisplayName(),
			AvatarURL:      p.ProfilePictureURL,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
	}

	n, err := w.store.UpsertProfiles(ctx, users)
	if err != nil {
		return n, err
	}
	log.Printf("[SYNC] ✅ Synced %d profile(s) (%d upserted)", len(profiles), n)
	return n, nil
}

func (w *ProfileSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	log.Printf("[SYNC] ➡️  GET %s", finalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Profile service returned %d for %s: %s", resp.StatusCode, finalURL, body)
		return nil, fmt.Errorf("profile service non-200 response: %d: %s", resp.StatusCode, body)
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	return response.Users, nil
}
