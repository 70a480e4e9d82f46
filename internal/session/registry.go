// Package session binds one discovery session per UI client: a filter
// coordinator, a feed controller, and a persisted store namespace.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vecindario/discovery/internal/coordinator"
	"github.com/vecindario/discovery/internal/dispatch"
	"github.com/vecindario/discovery/internal/feed"
	"github.com/vecindario/discovery/internal/filterstore"
	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
)

// Kind selects which upstream listing a session searches.
type Kind string

const (
	KindJobs        Kind = "jobs"
	KindWorkers     Kind = "workers"
	KindRecommended Kind = "recommended"
)

// ValidKind reports whether k names a known session kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindJobs, KindWorkers, KindRecommended:
		return true
	}
	return false
}

// DefaultTTL is how long an idle session survives before the janitor
// removes it.
const DefaultTTL = 30 * time.Minute

// Session is one client's live discovery state.
type Session struct {
	ID          string
	Kind        Kind
	Coordinator *coordinator.Coordinator
	Feed        *feed.Controller

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// StoreFactory builds a filter store for a namespace.
type StoreFactory func(namespace string) filterstore.Store

// Registry creates, looks up, and expires sessions.
type Registry struct {
	stores   StoreFactory
	client   *dispatch.Client
	logger   *logging.Logger
	ttl      time.Duration
	debounce time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a session registry. A zero ttl falls back to
// DefaultTTL; a zero debounce falls back to the coordinator default.
func NewRegistry(stores StoreFactory, client *dispatch.Client, ttl, debounce time.Duration, logger *logging.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		stores:   stores,
		client:   client,
		logger:   logger,
		ttl:      ttl,
		debounce: debounce,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create opens a session of the given kind. The namespace scopes the
// persisted filter so different screens ("jobs", "works") never collide;
// an empty namespace falls back to the kind. Mode selects the commit
// strategy (debounced search bar vs apply-button modal).
func (r *Registry) Create(ctx context.Context, kind Kind, namespace string, mode coordinator.Mode) (*Session, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("unknown session kind %q", kind)
	}
	if namespace == "" {
		namespace = string(kind)
	}

	store := r.stores(namespace)
	ctl := feed.New(r.searcherFor(kind), r.logger)

	coord := coordinator.New(store, func(f models.FilterState) {
		// Filter commits always reload from page one; the controller's
		// generation counter guarantees the newest commit wins.
		go ctl.LoadFirstPage(context.Background(), f)
	}, coordinator.Options{Mode: mode, Debounce: r.debounce}, r.logger)

	s := &Session{
		ID:          uuid.NewString(),
		Kind:        kind,
		Coordinator: coord,
		Feed:        ctl,
		lastSeen:    time.Now(),
	}

	restored := coord.Mount(ctx)
	// Prime the feed with the restored filter so the first render has
	// content without waiting for an edit.
	go ctl.LoadFirstPage(context.Background(), restored)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Info("Discovery session created", logging.WithFields(map[string]interface{}{
		"session":   s.ID,
		"kind":      string(kind),
		"namespace": namespace,
	}))
	return s, nil
}

func (r *Registry) searcherFor(kind Kind) feed.Searcher {
	switch kind {
	case KindWorkers:
		return feed.SearcherFunc(func(ctx context.Context, f models.FilterState, page int) models.FeedPage {
			return r.client.FilteredWorkers(ctx, f, page)
		})
	case KindRecommended:
		return feed.SearcherFunc(func(ctx context.Context, f models.FilterState, page int) models.FeedPage {
			return r.client.Recommendations(ctx, page)
		})
	default:
		return feed.SearcherFunc(func(ctx context.Context, f models.FilterState, page int) models.FeedPage {
			return r.client.SearchJobs(ctx, f, page)
		})
	}
}

// Get returns a live session and refreshes its idle clock.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Coordinator.Close()
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the janitor and closes every session.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})

	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Coordinator.Close()
	}
}

func (r *Registry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireIdle()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) expireIdle() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Coordinator.Close()
		r.logger.Debug("Expired idle discovery session", logging.WithField("session", s.ID))
	}
}
