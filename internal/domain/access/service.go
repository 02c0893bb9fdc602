package access

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
)

const (
	defaultCacheTTL = 30 * time.Second
	flightKey       = "access_settings"
)

// SharedCache is an optional second cache layer shared by every replica so
// an update on one instance is visible to the others before their local
// TTL expires.
type SharedCache interface {
	Get(ctx context.Context) (Settings, bool, error)
	Set(ctx context.Context, s Settings, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Service is the read-through store for the singleton access settings.
// Reads are served from a process-local copy for ttl; concurrent cold reads
// share one load.
type Service struct {
	repo    Repository
	ttl     time.Duration
	shared  SharedCache
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	cached    *Settings
	expiresAt time.Time
	// gen is bumped by Invalidate; a load started under an older gen must
	// not publish what it read.
	gen uint64
}

func NewService(repo Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{repo: repo, ttl: ttl, logger: zerolog.Nop(), now: time.Now}
}

// SetSharedCache attaches an optional shared (Redis) layer.
func (s *Service) SetSharedCache(c SharedCache) { s.shared = c }

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

func (s *Service) local() (Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil || !s.now().Before(s.expiresAt) {
		return Settings{}, false
	}
	return *s.cached, true
}

func (s *Service) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// store caches st unless an Invalidate happened since gen was taken.
func (s *Service) store(st Settings, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.cached = &st
	s.expiresAt = s.now().Add(s.ttl)
	return true
}

// Get returns the current settings. It never fails because of schema lag:
// a missing table or column yields Defaults().
func (s *Service) Get(ctx context.Context) (Settings, error) {
	if st, ok := s.local(); ok {
		s.metrics.IncPolicyLookup("local", "hit")
		return st, nil
	}
	s.metrics.IncPolicyLookup("local", "miss")

	// The load outlives a cancelled first caller since others may share it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		return s.load(loadCtx)
	})
	if err != nil {
		return Settings{}, err
	}
	return v.(Settings), nil
}

func (s *Service) load(ctx context.Context) (Settings, error) {
	gen := s.generation()
	if s.shared != nil {
		st, ok, err := s.shared.Get(ctx)
		switch {
		case err != nil:
			s.metrics.IncPolicyLookup("redis", "error")
			s.logger.Warn().Err(err).Msg("shared settings cache read failed")
		case ok:
			s.metrics.IncPolicyLookup("redis", "hit")
			st = st.normalized()
			s.store(st, gen)
			return st, nil
		default:
			s.metrics.IncPolicyLookup("redis", "miss")
		}
	}

	rec, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotSeeded) {
		if err = s.repo.EnsureSingleton(ctx, Defaults()); err == nil {
			rec, err = s.repo.Get(ctx)
		}
	}
	if err != nil {
		if db.IsSchemaLag(err) {
			s.logger.Warn().Err(err).Msg("access_settings schema not migrated, serving defaults")
			st := Defaults()
			// Kept locally only so the shared layer is not poisoned.
			s.store(st, gen)
			return st, nil
		}
		return Settings{}, apperr.Internal("failed to load access settings", err)
	}

	st := rec.Normalize()
	if !s.store(st, gen) {
		// An update committed while this read was in flight.
		return st, nil
	}
	if s.shared != nil {
		if err := s.shared.Set(ctx, st, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("shared settings cache write failed")
		}
		if s.generation() != gen {
			s.dropShared(ctx)
		}
	}
	return st, nil
}

// Invalidate drops the local and shared copies. Loads already in flight
// still answer their callers but no longer populate either cache.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
	s.group.Forget(flightKey)

	if s.shared != nil {
		s.dropShared(ctx)
	}
}

func (s *Service) dropShared(ctx context.Context) {
	if err := s.shared.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("shared settings cache invalidation failed")
	}
}

// Update applies a partial update and invalidates the caches. The merge
// happens in the repository against the stored row, never against a cached
// copy, so concurrent updates of different fields do not undo each other.
func (s *Service) Update(ctx context.Context, in UpdateInput, actorID int64) (Settings, error) {
	patch, err := in.ToPatch()
	if err != nil {
		return Settings{}, err
	}

	rec, err := s.repo.Save(ctx, patch, actorID)
	if err != nil {
		return Settings{}, apperr.Internal("failed to save access settings", err)
	}
	s.Invalidate(ctx)

	saved := rec.Normalize()
	s.logger.Info().
		Int64("actor", actorID).
		Str("registration_mode", string(saved.RegistrationMode)).
		Str("link_policy", string(saved.LinkPolicy)).
		Msg("access settings updated")
	return saved, nil
}
