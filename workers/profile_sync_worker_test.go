package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arena-battle-system/services"
)

func strPtr(s string) *string { return &s }

func TestSyncOnce_UpsertsProfiles(t *testing.T) {
	var gotSince, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/public/profiles" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotSince = r.URL.Query().Get("since")
		gotToken = r.Header.Get("X-Service-Token")
		_ = json.NewEncoder(w).Encode(GetProfileChangesResponse{Users: []RemoteProfile{
			{ExternalID: "u1", Username: "vex", FirstName: strPtr("Vex"), LastName: strPtr("Orion"), UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
			{ExternalID: "u2", Username: "kora", ProfilePictureURL: strPtr("https://cdn/kora.png")},
			{ID: "orphan", Username: "ghost"},
		}})
	}))
	defer srv.Close()

	store := services.NewMemoryStore()
	w := NewProfileSyncWorker(store, srv.URL, "/api/v1/public/profiles", "svc-token", time.Minute, srv.Client())

	since := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n, err := w.SyncOnce(context.Background(), since)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("upserted = %d, want 2", n)
	}
	if gotSince != "2026-01-01T12:00:00Z" || gotToken != "svc-token" {
		t.Fatalf("since=%q token=%q", gotSince, gotToken)
	}

	vex, err := store.LookupProfile(context.Background(), "u1")
	if err != nil || vex == nil {
		t.Fatalf("lookup u1: %v %v", vex, err)
	}
	if vex.DisplayName != "Vex Orion" {
		t.Fatalf("display name = %q", vex.DisplayName)
	}
	kora, _ := store.LookupProfile(context.Background(), "u2")
	if kora == nil || kora.AvatarURL == nil || *kora.AvatarURL != "https://cdn/kora.png" {
		t.Fatalf("kora = %+v", kora)
	}
}

func TestSyncOnce_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewProfileSyncWorker(services.NewMemoryStore(), srv.URL, "/profiles", "t", time.Minute, srv.Client())
	if _, err := w.SyncOnce(context.Background(), time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoteProfileDisplayName(t *testing.T) {
	tests := []struct {
		first, last *string
		want        string
	}{
		{nil, nil, ""},
		{strPtr("Vex"), nil, "Vex"},
		{strPtr(" "), strPtr("Orion"), "Orion"},
		{strPtr("Vex"), strPtr("Orion"), "Vex Orion"},
	}
	for _, tt := range tests {
		p := RemoteProfile{FirstName: tt.first, LastName: tt.last}
		if got := p.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
