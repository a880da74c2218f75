package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentransit/regioncore/internal/region"
)

// maxResponseBytes caps how much of a catalog response is read.
const maxResponseBytes = 4 << 20

// looseBool decodes a JSON boolean that may arrive as a real boolean, a
// string ("true"/"false"), or a 0/1 number.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("%w: boolean value %s", ErrBadPayload, data)
	}
	return nil
}

// serverRegion is one catalog entry on the wire.
type serverRegion struct {
	ID                   int64         `json:"id"`
	RegionName           string        `json:"regionName"`
	OBABaseURL           string        `json:"obaBaseUrl"`
	SiriBaseURL          string        `json:"siriBaseUrl"`
	Language             string        `json:"language"`
	ContactEmail         string        `json:"contactEmail"`
	SupportsDiscovery    looseBool     `json:"supportsObaDiscoveryApis"`
	SupportsOBARealtime  looseBool     `json:"supportsObaRealtimeApis"`
	SupportsSiriRealtime looseBool     `json:"supportsSiriRealtimeApis"`
	TwitterURL           string        `json:"twitterUrl"`
	Experimental         looseBool     `json:"experimental"`
	TutorialURL          string        `json:"tutorialUrl"`
	Bounds               []serverBound `json:"bounds"`
}

type serverBound struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"latSpan"`
	LonSpan float64 `json:"lonSpan"`
}

// document is the catalog response envelope.
type document struct {
	Code int    `json:"code"`
	Text string `json:"text"`
	Data struct {
		List []serverRegion `json:"list"`
	} `json:"data"`
}

// Loader fetches and decodes the remote regions catalog.
type Loader struct {
	url    string
	client *http.Client
}

// NewLoader creates a loader for the given catalog URL.
// The timeout bounds the whole fetch including body read.
func NewLoader(url string, timeout time.Duration) *Loader {
	return &Loader{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the catalog and converts each entry to a region plus its
// coverage boxes. Entries without a positive id are skipped by the caller,
// not here; the loader reports the document as served.
func (l *Loader) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side only

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog returned status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if doc.Code != 0 && doc.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog code %d %q", ErrUnavailable, doc.Code, doc.Text)
	}

	entries := make([]Entry, 0, len(doc.Data.List))
	for _, sr := range doc.Data.List {
		entry := Entry{
			ID: sr.ID,
			Region: region.Region{
				Name:                 sr.RegionName,
				OBABaseURL:           sr.OBABaseURL,
				SiriBaseURL:          sr.SiriBaseURL,
				Language:             sr.Language,
				ContactEmail:         sr.ContactEmail,
				SupportsDiscovery:    bool(sr.SupportsDiscovery),
				SupportsOBARealtime:  bool(sr.SupportsOBARealtime),
				SupportsSiriRealtime: bool(sr.SupportsSiriRealtime),
				TwitterURL:           sr.TwitterURL,
				Experimental:         bool(sr.Experimental),
				TutorialURL:          sr.TutorialURL,
			},
		}
		for _, sb := range sr.Bounds {
			entry.Bounds = append(entry.Bounds, region.Bounds{
				Lat:     sb.Lat,
				Lon:     sb.Lon,
				LatSpan: sb.LatSpan,
				LonSpan: sb.LonSpan,
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Entry is one decoded catalog region ready to be written locally.
type Entry struct {
	ID     int64
	Region region.Region
	Bounds []region.Bounds
}
