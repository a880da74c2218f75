package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/opentransit/regioncore/internal/region"
)

// fetchAttempts is how many times one sync tries the remote catalog
// before giving up. Backoff doubles between attempts.
const (
	fetchAttempts    = 3
	fetchBackoffBase = 2 * time.Second
)

// Logger defines the logging interface used by the Syncer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result summarises one sync pass.
type Result struct {
	Fetched  int       `json:"fetched"`
	Upserted int       `json:"upserted"`
	Skipped  int       `json:"skipped"`
	At       time.Time `json:"at"`
}

// Syncer keeps the local region set aligned with the remote catalog.
// Each pass upserts every catalog entry under its catalog-assigned id and
// replaces the entry's bounds; local regions absent from the catalog are
// left alone, so locally-created regions survive a sync.
type Syncer struct {
	loader   *Loader
	repo     *region.Repository
	logger   Logger
	backoff  time.Duration // initial retry backoff, doubles per attempt
	onResult func(Result, time.Duration)
}

// NewSyncer creates a syncer writing through the given repository.
func NewSyncer(loader *Loader, repo *region.Repository) *Syncer {
	return &Syncer{
		loader:  loader,
		repo:    repo,
		logger:  noopLogger{},
		backoff: fetchBackoffBase,
	}
}

// SetLogger sets the logger for the syncer.
func (s *Syncer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetOnResult registers a callback invoked after every successful pass with
// the result and the pass duration. Used to archive sync outcomes.
// Must be called before Run.
func (s *Syncer) SetOnResult(fn func(Result, time.Duration)) {
	s.onResult = fn
}

// Sync performs one catalog pass: fetch with retry, then upsert each entry.
// Entries without a positive id or failing validation are skipped and
// counted, never fatal; a region list is better partially refreshed than
// not at all.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	start := time.Now()
	entries, err := s.fetchWithRetry(ctx)
	if err != nil {
		return Result{}, err
	}

	result := Result{Fetched: len(entries), At: start.UTC()}
	for _, entry := range entries {
		if entry.ID <= 0 {
			s.logger.Warn("skipping catalog entry without id", "name", entry.Region.Name)
			result.Skipped++
			continue
		}

		reg := entry.Region
		if _, err := s.repo.Upsert(ctx, entry.ID, &reg); err != nil {
			s.logger.Warn("skipping catalog entry",
				"id", entry.ID, "name", entry.Region.Name, "error", err)
			result.Skipped++
			continue
		}
		if err := s.repo.ReplaceBounds(ctx, entry.ID, entry.Bounds); err != nil {
			return result, fmt.Errorf("replacing bounds for region %d: %w", entry.ID, err)
		}
		result.Upserted++
	}

	s.logger.Info("catalog sync complete",
		"fetched", result.Fetched, "upserted", result.Upserted, "skipped", result.Skipped)
	if s.onResult != nil {
		s.onResult(result, time.Since(start))
	}
	return result, nil
}

// Run syncs immediately and then on every interval tick until the context
// is cancelled. Failed passes are logged and retried at the next tick.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sync(ctx); err != nil {
		s.logger.Error("initial catalog sync failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				s.logger.Error("catalog sync failed", "error", err)
			}
		}
	}
}

func (s *Syncer) fetchWithRetry(ctx context.Context) ([]Entry, error) {
	var lastErr error
	backoff := s.backoff

	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		entries, err := s.loader.Fetch(ctx)
		if err == nil {
			return entries, nil
		}
		lastErr = err
		s.logger.Warn("catalog fetch failed",
			"attempt", attempt, "of", fetchAttempts, "error", err)

		if attempt == fetchAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("fetching catalog after %d attempts: %w", fetchAttempts, lastErr)
}
