package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opentransit/regioncore/internal/bus"
	"github.com/opentransit/regioncore/internal/infrastructure/database"
	"github.com/opentransit/regioncore/internal/region"
	"github.com/opentransit/regioncore/internal/store"
	_ "github.com/opentransit/regioncore/migrations"
)

// catalogBody is a realistic two-region catalog document. Region 1 uses
// real JSON booleans; region 2 uses the string form some deployed catalogs
// serve.
const catalogBody = `{
  "code": 200,
  "text": "OK",
  "data": {
    "list": [
      {
        "id": 1,
        "regionName": "Atlanta",
        "obaBaseUrl": "https://atlanta.example.com/api/",
        "siriBaseUrl": "https://atlanta.example.com/siri/",
        "language": "en_US",
        "contactEmail": "contact@atlanta.example.com",
        "supportsObaDiscoveryApis": true,
        "supportsObaRealtimeApis": true,
        "supportsSiriRealtimeApis": false,
        "twitterUrl": "https://twitter.com/atlantatransit",
        "experimental": false,
        "tutorialUrl": "https://atlanta.example.com/tutorial",
        "bounds": [
          {"lat": 33.749, "lon": -84.388, "latSpan": 0.557, "lonSpan": 0.731},
          {"lat": 34.063, "lon": -84.189, "latSpan": 0.105, "lonSpan": 0.118}
        ]
      },
      {
        "id": 2,
        "regionName": "Puget Sound",
        "obaBaseUrl": "https://puget.example.com/api/",
        "siriBaseUrl": "https://puget.example.com/siri/",
        "language": "en_US",
        "contactEmail": "contact@puget.example.com",
        "supportsObaDiscoveryApis": "true",
        "supportsObaRealtimeApis": "false",
        "supportsSiriRealtimeApis": "false",
        "twitterUrl": "",
        "experimental": "true",
        "tutorialUrl": "",
        "bounds": [
          {"lat": 47.606, "lon": -122.332, "latSpan": 0.9, "lonSpan": 0.6}
        ]
      }
    ]
  }
}`

func setupRepo(t *testing.T) *region.Repository {
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
	return region.NewRepository(store.New(db, bus.New()))
}

func newSyncer(t *testing.T, url string) (*Syncer, *region.Repository) {
	t.Helper()
	repo := setupRepo(t)
	s := NewSyncer(NewLoader(url, 5*time.Second), repo)
	s.backoff = time.Millisecond
	return s, repo
}

func TestSyncWritesCatalogRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalogBody)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, repo := newSyncer(t, srv.URL)
	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Fetched != 2 || result.Upserted != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	atlanta, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get 1: %v", err)
	}
	if atlanta == nil || atlanta.Name != "Atlanta" {
		t.Fatalf("expected Atlanta under id 1, got %+v", atlanta)
	}
	if !atlanta.SupportsDiscovery || atlanta.SupportsSiriRealtime {
		t.Errorf("boolean flags decoded wrong: %+v", atlanta)
	}
	if len(atlanta.Bounds) != 2 {
		t.Errorf("expected 2 bounds, got %d", len(atlanta.Bounds))
	}

	puget, err := repo.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get 2: %v", err)
	}
	if puget == nil || !puget.Experimental || puget.SupportsOBARealtime {
		t.Errorf("string-form booleans decoded wrong: %+v", puget)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogBody)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, repo := newSyncer(t, srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := s.Sync(context.Background()); err != nil {
			t.Fatalf("Sync round %d: %v", i, err)
		}
	}

	regions, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions after repeated sync, got %d", len(regions))
	}
	if len(regions[0].Bounds) != 2 {
		t.Errorf("bounds duplicated across syncs: %d", len(regions[0].Bounds))
	}
}

func TestSyncPreservesLocalRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogBody)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, repo := newSyncer(t, srv.URL)
	local := &region.Region{
		Name:         "Local Test Region",
		OBABaseURL:   "http://localhost/api/",
		SiriBaseURL:  "http://localhost/siri/",
		Language:     "en_US",
		ContactEmail: "dev@localhost",
	}
	if _, err := repo.Upsert(context.Background(), 900, local); err != nil {
		t.Fatalf("Upsert local: %v", err)
	}

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := repo.Get(context.Background(), 900)
	if err != nil {
		t.Fatalf("Get local: %v", err)
	}
	if got == nil {
		t.Fatal("local region removed by sync")
	}
}

func TestSyncSkipsEntriesWithoutID(t *testing.T) {
	body := `{"code":200,"data":{"list":[
	  {"id":0,"regionName":"No ID","obaBaseUrl":"x","siriBaseUrl":"x","language":"en","contactEmail":"x"},
	  {"id":3,"regionName":"Tampa","obaBaseUrl":"https://tampa.example.com/api/","siriBaseUrl":"https://tampa.example.com/siri/","language":"en_US","contactEmail":"c@tampa.example.com"}
	]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, _ := newSyncer(t, srv.URL)
	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Upserted != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 upserted and 1 skipped, got %+v", result)
	}
}

func TestSyncRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(catalogBody)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, _ := newSyncer(t, srv.URL)
	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Upserted != 2 {
		t.Fatalf("expected success on third attempt, got %+v", result)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 fetch attempts, got %d", calls.Load())
	}
}

func TestSyncGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s, _ := newSyncer(t, srv.URL)
	_, err := s.Sync(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSyncBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, _ := newSyncer(t, srv.URL)
	_, err := s.Sync(context.Background())
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestLooseBoolForms(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    bool
		wantErr bool
	}{
		{"json true", `true`, true, false},
		{"json false", `false`, false, false},
		{"string true", `"true"`, true, false},
		{"string false", `"false"`, false, false},
		{"one", `1`, true, false},
		{"zero", `0`, false, false},
		{"null", `null`, false, false},
		{"garbage", `"maybe"`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b looseBool
			err := b.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bool(b) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, b)
			}
		})
	}
}

func TestSyncReportsResultToCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalogBody)) //nolint:errcheck // Test server
	}))
	t.Cleanup(srv.Close)

	s, _ := newSyncer(t, srv.URL)

	var gotResult Result
	var gotTook time.Duration
	s.SetOnResult(func(res Result, took time.Duration) {
		gotResult = res
		gotTook = took
	})

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if gotResult.Upserted != 2 {
		t.Errorf("callback upserted = %d, want 2", gotResult.Upserted)
	}
	if gotTook <= 0 {
		t.Errorf("callback duration = %v, want positive", gotTook)
	}
}
