package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry and Engine.
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

// Registry provides schedule management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache so the tick loop
// can scan every schedule each interval without hitting the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	loc     *time.Location
	cache   map[string]*Schedule
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new schedule registry. loc is the venue
// timezone used for fire-time computation.
func NewRegistry(repo Repository, loc *time.Location) *Registry {
	return &Registry{
		repo:   repo,
		loc:    loc,
		cache:  make(map[string]*Schedule),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all schedules from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	schedules, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Schedule, len(schedules))
	for i := range schedules {
		s := schedules[i]
		r.cache[s.ID] = s.DeepCopy()
	}

	r.logger.Info("schedule cache refreshed", "count", len(schedules))
	return nil
}

// Get retrieves a schedule by ID.
// The returned schedule is a deep copy; callers can safely modify it.
func (r *Registry) Get(_ context.Context, id string) (*Schedule, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrScheduleNotFound
}

// GetBySlug retrieves a schedule by its slug.
// The returned schedule is a deep copy.
func (r *Registry) GetBySlug(_ context.Context, slug string) (*Schedule, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, s := range r.cache {
		if s.Slug == slug {
			return s.DeepCopy(), nil
		}
	}
	return nil, ErrScheduleNotFound
}

// List retrieves all schedules from the cache, sorted by name.
func (r *Registry) List(_ context.Context) ([]Schedule, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	schedules := make([]Schedule, 0, len(r.cache))
	for _, s := range r.cache {
		schedules = append(schedules, *s.DeepCopy())
	}
	sortSchedules(schedules)
	return schedules, nil
}

// ListDue returns enabled schedules whose next fire time has matured.
func (r *Registry) ListDue(_ context.Context, now time.Time) []Schedule {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var due []Schedule
	for _, s := range r.cache {
		if !s.Enabled || s.NextExecutionAt == nil {
			continue
		}
		if !s.NextExecutionAt.After(now) {
			due = append(due, *s.DeepCopy())
		}
	}
	sortSchedules(due)
	return due
}

// Create validates, persists, and caches a new schedule, computing its
// initial fire time.
func (r *Registry) Create(ctx context.Context, s *Schedule) error {
	if s.ID == "" {
		s.ID = GenerateID()
	}
	if s.Slug == "" {
		s.Slug = GenerateSlug(s.Name)
	}
	if s.ExecutionOrder == "" {
		s.ExecutionOrder = OrderOutputsFirst
	}

	if err := ValidateSchedule(s); err != nil {
		return err
	}

	if s.Enabled {
		if err := r.computeNextFire(s, time.Now()); err != nil {
			return err
		}
	} else {
		s.NextExecutionAt = nil
	}

	if err := r.repo.Create(ctx, s); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[s.ID] = s.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("schedule created", "id", s.ID, "name", s.Name, "next", s.NextExecutionAt)
	return nil
}

// Update validates, persists, and updates the cached schedule. The
// fire time is recomputed because the definition may have changed.
func (r *Registry) Update(ctx context.Context, s *Schedule) error {
	if err := ValidateSchedule(s); err != nil {
		return err
	}

	if s.Enabled {
		if err := r.computeNextFire(s, time.Now()); err != nil {
			return err
		}
	} else {
		s.NextExecutionAt = nil
	}

	if err := r.repo.Update(ctx, s); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[s.ID] = s.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("schedule updated", "id", s.ID, "name", s.Name, "next", s.NextExecutionAt)
	return nil
}

// Delete removes a schedule from persistence and cache.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("schedule deleted", "id", id)
	return nil
}

// CommitRunState persists fire bookkeeping and refreshes the cache
// entry. Used by the engine when claiming a fire and after a run.
func (r *Registry) CommitRunState(ctx context.Context, s *Schedule) error {
	if err := r.repo.UpdateRunState(ctx, s.ID, s.NextExecutionAt, s.LastExecutedAt, s.ExecutionCount, s.Enabled); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[s.ID]; ok {
		cached.NextExecutionAt = cloneTimePtr(s.NextExecutionAt)
		cached.LastExecutedAt = cloneTimePtr(s.LastExecutedAt)
		cached.ExecutionCount = s.ExecutionCount
		cached.Enabled = s.Enabled
	}
	r.cacheMu.Unlock()

	return nil
}

// Count returns the number of cached schedules.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// computeNextFire fills in NextExecutionAt. A once schedule with no
// future slot is stored disabled rather than rejected, so an operator
// can still see and re-date it.
func (r *Registry) computeNextFire(s *Schedule, after time.Time) error {
	next, err := NextFire(s, after, r.loc)
	if err != nil {
		if errors.Is(err, ErrNoFutureFire) {
			s.Enabled = false
			s.NextExecutionAt = nil
			return nil
		}
		return err
	}
	s.NextExecutionAt = &next
	return nil
}

// sortSchedules sorts schedules by name for deterministic listings.
func sortSchedules(schedules []Schedule) {
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].Name < schedules[j].Name
	})
}
