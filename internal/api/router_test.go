package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dropzone/internal/room"
)

func newTestManager() *room.Manager {
	return room.NewManager(time.Minute, 1000, 1000)
}

func fastRateLimit() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, CleanupInterval: time.Minute}
}

func TestCreateAndListRooms(t *testing.T) {
	mgr := newTestManager()
	r := NewRouter(RouterConfig{Manager: mgr, RateLimitConfig: fastRateLimit(), DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", strings.NewReader(`{"id":"room1","worldSeed":7}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 creating room, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if mgr.GetRoom("room1") == nil {
		t.Fatal("expected room1 to exist in the manager")
	}

	resp, err = http.Post(ts.URL+"/api/rooms", "application/json", strings.NewReader(`{"id":"room1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 recreating an existing room, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rooms []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0]["id"] != "room1" {
		t.Fatalf("expected listing to contain room1, got %v", rooms)
	}
}

func TestRoomStateAndStatsNotFound(t *testing.T) {
	mgr := newTestManager()
	r := NewRouter(RouterConfig{Manager: mgr, RateLimitConfig: fastRateLimit(), DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/rooms/missing/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}
}

func TestRoomStateReflectsCreatedRoom(t *testing.T) {
	mgr := newTestManager()
	mgr.CreateRoom("room1", 7)
	r := NewRouter(RouterConfig{Manager: mgr, RateLimitConfig: fastRateLimit(), DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/rooms/room1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["id"] != "room1" {
		t.Fatalf("expected stats for room1, got %v", stats)
	}
}

func TestHealthz(t *testing.T) {
	mgr := newTestManager()
	r := NewRouter(RouterConfig{Manager: mgr, RateLimitConfig: fastRateLimit(), DisableLogging: true})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", resp.StatusCode)
	}
}

func TestAdminAuthRejectsWithoutSession(t *testing.T) {
	mgr := newTestManager()
	sm := NewSessionManager("secret-token")
	r := NewRouter(RouterConfig{
		Manager:         mgr,
		RateLimitConfig: fastRateLimit(),
		DisableLogging:  true,
		SessionManager:  sm,
		EnableAdminAuth: true,
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/admin/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect to /login without a session, got %d", resp.StatusCode)
	}
}

func TestSessionManagerCreateSessionRequiresMatchingToken(t *testing.T) {
	sm := NewSessionManager("secret-token")

	if _, err := sm.CreateSession("wrong-token"); err == nil {
		t.Fatal("expected CreateSession to reject a mismatched token")
	}

	id, err := sm.CreateSession("secret-token")
	if err != nil {
		t.Fatalf("expected CreateSession to accept the matching token: %v", err)
	}
	if sm.GetSession(id) == nil {
		t.Fatal("expected session to be retrievable immediately after creation")
	}
}
