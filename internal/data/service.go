// Package data is the application's data access layer: every read and
// write of rooms, contracts, meter readings and billing history goes
// through it. It gates access on the authenticated user, keeps a
// synchronized cache per signed-in session and owns the business rules
// that sit between the REST handlers and the document store.
package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/config"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/metrics"
	"github.com/rentledger/rentledger/internal/synccache"
)

// Common errors
var (
	// ErrUnauthenticated is returned for any data operation attempted
	// without a signed-in user on the context.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrContractConflict is returned when saving a contract would leave
	// a room with two open contracts.
	ErrContractConflict = errors.New("room already has an open contract")
)

// Service is the data access facade
type Service struct {
	store docstore.Store
	cfg   config.BillingConfig

	// clock is swapped out by tests that pin billing timestamps
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*synccache.Cache
}

// NewService creates a new data service
func NewService(store docstore.Store, cfg config.BillingConfig) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		clock:    time.Now,
		sessions: make(map[string]*synccache.Cache),
	}
}

func (s *Service) now() time.Time {
	return s.clock()
}

// OnLogin starts a synchronized cache session for the user. Calling it
// again for the same user is a no-op; the existing session stands.
func (s *Service) OnLogin(ctx context.Context, uid string) error {
	s.mu.Lock()
	if _, ok := s.sessions[uid]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	cache := synccache.New(uid, s.store)
	if err := cache.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.sessions[uid]; ok {
		// Lost the race to another login; keep the first session.
		s.mu.Unlock()
		cache.Close()
		return nil
	}
	s.sessions[uid] = cache
	s.mu.Unlock()

	metrics.ActiveSessions.Inc()
	log.Debug().Str("user_id", uid).Msg("Data session started")
	return nil
}

// OnLogout tears down the user's cache session, if any
func (s *Service) OnLogout(uid string) {
	s.mu.Lock()
	cache, ok := s.sessions[uid]
	delete(s.sessions, uid)
	s.mu.Unlock()

	if ok {
		cache.Close()
		metrics.ActiveSessions.Dec()
		log.Debug().Str("user_id", uid).Msg("Data session closed")
	}
}

// Shutdown closes every open session
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*synccache.Cache)
	s.mu.Unlock()

	for _, cache := range sessions {
		cache.Close()
	}
	metrics.ActiveSessions.Set(0)
}

// session resolves the authenticated user and their cache. A valid token
// without a live session (server restarted, login handled elsewhere)
// starts one lazily rather than failing the request.
func (s *Service) session(ctx context.Context) (string, *synccache.Cache, error) {
	uid := auth.UIDFromContext(ctx)
	if uid == "" {
		return "", nil, ErrUnauthenticated
	}

	s.mu.Lock()
	cache, ok := s.sessions[uid]
	s.mu.Unlock()
	if ok {
		return uid, cache, nil
	}

	if err := s.OnLogin(ctx, uid); err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	cache = s.sessions[uid]
	s.mu.Unlock()
	return uid, cache, nil
}

// uid resolves just the authenticated user id
func (s *Service) uid(ctx context.Context) (string, error) {
	uid := auth.UIDFromContext(ctx)
	if uid == "" {
		return "", ErrUnauthenticated
	}
	return uid, nil
}

// nowISO is the timestamp format stored on documents. RFC3339 sorts
// lexicographically, which the ordered queries rely on.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// todayISO is today's date in YYYY-MM-DD
func todayISO() string {
	return time.Now().UTC().Format("2006-01-02")
}
