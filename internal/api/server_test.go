package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opentransit/regioncore/internal/bus"
	"github.com/opentransit/regioncore/internal/infrastructure/config"
	"github.com/opentransit/regioncore/internal/infrastructure/database"
	"github.com/opentransit/regioncore/internal/infrastructure/logging"
	"github.com/opentransit/regioncore/internal/prefs"
	"github.com/opentransit/regioncore/internal/region"
	"github.com/opentransit/regioncore/internal/store"
	_ "github.com/opentransit/regioncore/migrations"
)

// testServer creates a Server backed by a real store over a temporary
// database with the embedded migrations applied.
func testServer(t *testing.T, sec config.SecurityConfig) *Server {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	b := bus.New()
	st := store.New(db, b)
	registry := region.NewRegistry(region.NewRepository(st))
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: sec,
		Logger:   log,
		Registry: registry,
		Store:    st,
		Prefs:    prefs.NewRepository(db),
		Bus:      b,
		DB:       db,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub and change relay for tests without calling Start()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(ctx)
	srv.relayChangeEvents(ctx)

	return srv
}

// doRequest runs one request through the router and returns the recorder.
func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const atlantaJSON = `{
	"name": "Atlanta",
	"oba_base_url": "https://atlanta.example.com/api/",
	"siri_base_url": "https://atlanta.example.com/siri/",
	"lang": "en_US",
	"contact_email": "contact@atlanta.example.com",
	"supports_api_discovery": true,
	"supports_api_realtime": true,
	"supports_siri_realtime": false,
	"twitter_url": "https://twitter.com/atlantatransit",
	"experimental": false,
	"tutorial_url": "https://atlanta.example.com/tutorial",
	"bounds": [
		{"lat": 33.749, "lon": -84.388, "lat_span": 0.5, "lon_span": 0.5}
	]
}`

func TestHealth(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["database"] != "ok" {
		t.Errorf("database = %v, want ok", resp["database"])
	}
}

func TestRegionLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	// Upsert at an explicit id
	w := doRequest(router, http.MethodPut, "/api/v1/regions/42", atlantaJSON, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", w.Code, w.Body.String())
	}
	var putResp struct {
		Address string        `json:"address"`
		Region  region.Region `json:"region"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &putResp); err != nil {
		t.Fatalf("invalid PUT JSON: %v", err)
	}
	if putResp.Address != "regions/42" {
		t.Errorf("address = %q, want regions/42", putResp.Address)
	}
	if len(putResp.Region.Bounds) != 1 {
		t.Errorf("bounds count = %d, want 1", len(putResp.Region.Bounds))
	}

	// Read it back
	w = doRequest(router, http.MethodGet, "/api/v1/regions/42", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var got region.Region
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid GET JSON: %v", err)
	}
	if got.Name != "Atlanta" || !got.SupportsDiscovery {
		t.Errorf("unexpected region: %+v", got)
	}

	// Partial update keeps unnamed fields
	w = doRequest(router, http.MethodPatch, "/api/v1/regions/42", `{"name": "Atlanta Metro"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body %s", w.Code, w.Body.String())
	}
	var patched region.Region
	if err := json.Unmarshal(w.Body.Bytes(), &patched); err != nil {
		t.Fatalf("invalid PATCH JSON: %v", err)
	}
	if patched.Name != "Atlanta Metro" {
		t.Errorf("name = %q, want Atlanta Metro", patched.Name)
	}
	if patched.OBABaseURL != "https://atlanta.example.com/api/" {
		t.Errorf("oba_base_url changed on partial update: %q", patched.OBABaseURL)
	}

	// Delete and verify it is gone
	w = doRequest(router, http.MethodDelete, "/api/v1/regions/42", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = doRequest(router, http.MethodGet, "/api/v1/regions/42", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
}

func TestCreateRegionAssignsID(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/regions", atlantaJSON, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", w.Code, w.Body.String())
	}
	var created region.Region
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid POST JSON: %v", err)
	}
	if created.ID <= 0 {
		t.Errorf("id = %d, want positive", created.ID)
	}
	if len(created.Bounds) != 1 {
		t.Errorf("bounds count = %d, want 1", len(created.Bounds))
	}
}

func TestCreateRegionRejectsExplicitID(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/regions", `{"id": 7, "name": "X"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST with id status = %d, want 400", w.Code)
	}
}

func TestCreateRegionValidation(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/regions", `{"name": "No Endpoints"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST invalid region status = %d, want 400", w.Code)
	}
}

func TestListRegionsLimitAndActive(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	experimental := strings.Replace(atlantaJSON, `"experimental": false`, `"experimental": true`, 1)
	for i, body := range []string{atlantaJSON, atlantaJSON, experimental} {
		path := "/api/v1/regions/" + strconv.Itoa(i+1)
		if w := doRequest(router, http.MethodPut, path, body, ""); w.Code != http.StatusOK {
			t.Fatalf("seed PUT %s status = %d", path, w.Code)
		}
	}

	var list struct {
		Regions []region.Region `json:"regions"`
		Count   int             `json:"count"`
	}

	w := doRequest(router, http.MethodGet, "/api/v1/regions?limit=2", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("limited count = %d, want 2", list.Count)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/regions?active=true", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("active count = %d, want 2", list.Count)
	}
	for _, reg := range list.Regions {
		if reg.Experimental {
			t.Errorf("experimental region %d in active list", reg.ID)
		}
	}

	w = doRequest(router, http.MethodGet, "/api/v1/regions?limit=x", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestBoundsEndpoints(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	if w := doRequest(router, http.MethodPut, "/api/v1/regions/1", atlantaJSON, ""); w.Code != http.StatusOK {
		t.Fatalf("seed PUT status = %d", w.Code)
	}

	// Add a second box directly
	w := doRequest(router, http.MethodPost, "/api/v1/region_bounds",
		`{"region_id": 1, "lat": 34.0, "lon": -84.1, "lat_span": 0.2, "lon_span": 0.2}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("POST bounds status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		Address string `json:"address"`
		ID      int64  `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid POST JSON: %v", err)
	}
	if !strings.HasPrefix(created.Address, "region_bounds/") {
		t.Errorf("address = %q, want region_bounds/<id>", created.Address)
	}

	// The list projection carries only the geometry columns
	w = doRequest(router, http.MethodGet, "/api/v1/region_bounds?region_id=1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET list status = %d", w.Code)
	}
	var list struct {
		Bounds []map[string]any `json:"bounds"`
		Count  int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("bounds count = %d, want 2", list.Count)
	}
	for _, b := range list.Bounds {
		if _, ok := b["id"]; ok {
			t.Error("bounds projection leaked an id field")
		}
	}

	// Single box read, update, delete
	itemPath := "/api/v1/region_bounds/" + strconv.FormatInt(created.ID, 10)
	w = doRequest(router, http.MethodGet, itemPath, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET item status = %d", w.Code)
	}

	w = doRequest(router, http.MethodPatch, itemPath, `{"lat_span": 0.4}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body %s", w.Code, w.Body.String())
	}

	var box region.Bounds
	w = doRequest(router, http.MethodGet, itemPath, "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &box); err != nil {
		t.Fatalf("invalid item JSON: %v", err)
	}
	if box.LatSpan != 0.4 {
		t.Errorf("lat_span = %v, want 0.4", box.LatSpan)
	}

	w = doRequest(router, http.MethodDelete, itemPath, "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = doRequest(router, http.MethodGet, itemPath, "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
}

func TestBoundsRequireRegionID(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/region_bounds", `{"lat": 1.0}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST without region_id status = %d, want 400", w.Code)
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPut, "/api/v1/preferences",
		`{"email": "rider@example.com", "zip_home": "30332"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PUT batch status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/v1/preferences/email", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET key status = %d", w.Code)
	}
	var kv map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &kv); err != nil {
		t.Fatalf("invalid GET JSON: %v", err)
	}
	if kv["value"] != "rider@example.com" {
		t.Errorf("value = %q, want rider@example.com", kv["value"])
	}

	w = doRequest(router, http.MethodPut, "/api/v1/preferences/rider_type", `{"value": "commuter"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PUT key status = %d", w.Code)
	}

	var all struct {
		Preferences map[string]string `json:"preferences"`
		Count       int               `json:"count"`
	}
	w = doRequest(router, http.MethodGet, "/api/v1/preferences", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if all.Count != 3 {
		t.Errorf("count = %d, want 3", all.Count)
	}

	w = doRequest(router, http.MethodDelete, "/api/v1/preferences/email", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = doRequest(router, http.MethodGet, "/api/v1/preferences/email", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
}

func TestCatalogSyncUnconfigured(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/catalog/sync", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("sync status = %d, want 503", w.Code)
	}
}

func TestWriteGuardWithSecret(t *testing.T) {
	sec := config.SecurityConfig{
		JWT: config.JWTConfig{
			Secret:         "test-secret-key-at-least-32-characters-long",
			AccessTokenTTL: 15,
		},
	}
	srv := testServer(t, sec)
	router := srv.buildRouter()

	// Reads stay open
	if w := doRequest(router, http.MethodGet, "/api/v1/regions", "", ""); w.Code != http.StatusOK {
		t.Errorf("unauthenticated GET status = %d, want 200", w.Code)
	}

	// Writes without a token are rejected
	if w := doRequest(router, http.MethodPut, "/api/v1/regions/1", atlantaJSON, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated PUT status = %d, want 401", w.Code)
	}
	if w := doRequest(router, http.MethodPut, "/api/v1/regions/1", atlantaJSON, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token PUT status = %d, want 401", w.Code)
	}

	// Login and retry
	w := doRequest(router, http.MethodPost, "/api/v1/auth/login", `{"username": "admin", "password": "admin"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("invalid login JSON: %v", err)
	}
	if login.AccessToken == "" {
		t.Fatal("login returned an empty token")
	}

	if w := doRequest(router, http.MethodPut, "/api/v1/regions/1", atlantaJSON, login.AccessToken); w.Code != http.StatusOK {
		t.Errorf("authenticated PUT status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sec := config.SecurityConfig{
		JWT: config.JWTConfig{Secret: "test-secret-key-at-least-32-characters-long"},
	}
	srv := testServer(t, sec)
	router := srv.buildRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/auth/login", `{"username": "admin", "password": "wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", w.Code)
	}
}

func TestWebSocketReceivesChangeEvents(t *testing.T) {
	srv := testServer(t, config.SecurityConfig{})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{"regions"}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe write: %v", err)
	}

	// First frame confirms the subscription
	var resp WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Deadline on test connection
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse {
		t.Fatalf("response type = %q, want %q", resp.Type, WSTypeResponse)
	}

	// Mutate a region over HTTP and expect a change event
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/regions/5", strings.NewReader(atlantaJSON)) //nolint:errcheck // Static request
	httpResp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT request: %v", err)
	}
	httpResp.Body.Close() //nolint:errcheck // Test cleanup
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", httpResp.StatusCode)
	}

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Deadline on test connection
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("event read: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.EventType != "regions" {
		t.Errorf("event channel = %q, want regions", event.EventType)
	}
}

func TestNewRejectsMissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with empty deps should fail")
	}
}
