package region

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides region lookups with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for read-mostly
// consumers such as the region picker and websocket clients.
//
// The cache is populated on startup via RefreshCache() and kept in sync by
// write-through CRUD operations. Change notifications from other writers
// can invalidate individual entries via Invalidate().
//
// All public methods are thread-safe.
type Registry struct {
	repo    *Repository
	cache   map[int64]*Region // Cached regions by id
	cacheMu sync.RWMutex      // Protects cache
	logger  Logger
}

// NewRegistry creates a new region registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo *Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[int64]*Region),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all regions from the repository into the cache.
// This should be called on application startup and after catalog sync.
func (r *Registry) RefreshCache(ctx context.Context) error {
	regions, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading regions: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[int64]*Region, len(regions))
	for i := range regions {
		reg := regions[i]
		r.cache[reg.ID] = reg.DeepCopy()
	}

	r.logger.Info("region cache refreshed", "count", len(regions))
	return nil
}

// GetRegion retrieves a region by id.
// Returns ErrRegionNotFound if the region does not exist.
// The returned region is a deep copy; callers can safely modify it.
func (r *Registry) GetRegion(ctx context.Context, id int64) (*Region, error) {
	// Try cache first
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new region not yet cached)
	reg, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: id %d", ErrRegionNotFound, id)
	}

	// Cache for future lookups (store a deep copy)
	r.cacheMu.Lock()
	r.cache[id] = reg.DeepCopy()
	r.cacheMu.Unlock()

	return reg, nil
}

// ListRegions retrieves all regions.
// The returned regions are deep copies; callers can safely modify them.
func (r *Registry) ListRegions(ctx context.Context) ([]Region, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	// Return from cache if populated
	if len(r.cache) > 0 {
		regions := make([]Region, 0, len(r.cache))
		for _, reg := range r.cache {
			// Deep copy to prevent external mutation of cache
			regions = append(regions, *reg.DeepCopy())
		}
		// Map iteration order is random; match the repository's id order
		sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
		return regions, nil
	}

	// Fall back to repository
	return r.repo.List(ctx)
}

// ActiveRegions retrieves all regions with the experimental flag clear.
// The returned regions are deep copies; callers can safely modify them.
func (r *Registry) ActiveRegions(ctx context.Context) ([]Region, error) {
	regions, err := r.ListRegions(ctx)
	if err != nil {
		return nil, err
	}

	active := regions[:0]
	for _, reg := range regions {
		if !reg.Experimental {
			active = append(active, reg)
		}
	}
	return active, nil
}

// UpsertRegion writes a region through to the repository and updates the
// cache. Returns the resulting resource address.
func (r *Registry) UpsertRegion(ctx context.Context, id int64, reg *Region) (string, error) {
	addr, err := r.repo.Upsert(ctx, id, reg)
	if err != nil {
		return "", err
	}

	// Re-read so the cached entry carries the persisted bounds
	fresh, err := r.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	r.cacheMu.Lock()
	r.cache[id] = fresh
	r.cacheMu.Unlock()

	r.logger.Info("region upserted", "id", id, "name", reg.Name)
	return addr, nil
}

// InsertRegion creates a region with a store-assigned id and caches it.
// Returns the new id.
func (r *Registry) InsertRegion(ctx context.Context, reg *Region) (int64, error) {
	id, err := r.repo.Insert(ctx, reg)
	if err != nil {
		return 0, err
	}

	fresh, err := r.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	r.cacheMu.Lock()
	r.cache[id] = fresh
	r.cacheMu.Unlock()

	r.logger.Info("region created", "id", id, "name", reg.Name)
	return id, nil
}

// ReplaceBounds swaps a region's bounding boxes and refreshes the cached
// entry. Returns ErrRegionNotFound if no such region exists.
func (r *Registry) ReplaceBounds(ctx context.Context, id int64, bounds []Bounds) error {
	existing, err := r.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: id %d", ErrRegionNotFound, id)
	}

	if err := r.repo.ReplaceBounds(ctx, id, bounds); err != nil {
		return err
	}

	fresh, err := r.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[id] = fresh
	r.cacheMu.Unlock()

	r.logger.Info("region bounds replaced", "id", id, "count", len(bounds))
	return nil
}

// DeleteRegion removes a region and evicts it from the cache.
func (r *Registry) DeleteRegion(ctx context.Context, id int64) error {
	affected, err := r.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrRegionNotFound, id)
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("region deleted", "id", id)
	return nil
}

// Invalidate evicts one region from the cache. Called when a change
// notification reports a write that did not go through this registry.
// The next GetRegion falls through to the repository.
func (r *Registry) Invalidate(id int64) {
	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Debug("region cache entry invalidated", "id", id)
}

// InvalidateAll clears the whole cache. Used after bulk writes where the
// affected ids are not known.
func (r *Registry) InvalidateAll() {
	r.cacheMu.Lock()
	r.cache = make(map[int64]*Region)
	r.cacheMu.Unlock()

	r.logger.Debug("region cache cleared")
}

// GetRegionCount returns the number of cached regions.
func (r *Registry) GetRegionCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
