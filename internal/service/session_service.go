package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/permit-map-backend-go/internal/aggregation"
	"github.com/jengzang/permit-map-backend-go/internal/metrics"
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

const defaultFetchTimeout = 30 * time.Second

// session is one live map view. Its coordinator is fed by background fetches.
type session struct {
	coord       *aggregation.Coordinator
	projectType string
	lastSeen    time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	fetches     sync.WaitGroup
}

// SessionService keeps map view sessions whose sources resolve in the background
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*session

	sources      Sources
	opts         aggregation.Options
	limits       Limits
	ttl          time.Duration
	fetchTimeout time.Duration
}

// NewSessionService creates a session service. Sessions idle for longer than ttl expire.
func NewSessionService(sources Sources, opts aggregation.Options, limits Limits, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions:     make(map[string]*session),
		sources:      sources,
		opts:         opts,
		limits:       limits,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
	}
}

// Create opens a session and starts its three fetches concurrently.
// The returned id is usable right away; the view fills in as fetches resolve.
func (s *SessionService) Create(req models.SessionFilterRequest) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		coord:       aggregation.NewCoordinator(s.opts, metrics.CoordinatorHooks()),
		projectType: req.ProjectType,
		lastSeen:    time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	filter := sessionFilter(req)
	gen := sess.coord.BeginPointsFetch(filter)
	s.fetchPoints(sess, gen, filter, req.ProjectType)
	s.fetchTotals(sess)
	s.fetchGeography(sess)

	log.Printf("[SessionService] Created session %s", id)
	return id, nil
}

// View renders the session's current aggregates for one zoom level
func (s *SessionService) View(id string, zoom float64, simple bool) (models.MapView, error) {
	sess, err := s.touch(id)
	if err != nil {
		return models.MapView{}, err
	}
	return sess.coord.View(zoom, simple), nil
}

// UpdateFilter applies a new filter. A highlight-only change is applied in
// place; a category or project type change bumps the request generation and
// refetches points. It returns the current request generation.
func (s *SessionService) UpdateFilter(id string, req models.SessionFilterRequest) (uint64, error) {
	sess, err := s.touch(id)
	if err != nil {
		return 0, err
	}

	filter := sessionFilter(req)
	current := sess.coord.Filter()

	s.mu.Lock()
	sameQuery := sameCategories(current, filter) && sess.projectType == req.ProjectType
	sess.projectType = req.ProjectType
	s.mu.Unlock()

	if sameQuery {
		sess.coord.SetHighlight(filter.HighlightZip, filter.HighlightClusterID)
		return sess.coord.Generation(), nil
	}

	gen := sess.coord.BeginPointsFetch(filter)
	s.fetchPoints(sess, gen, filter, req.ProjectType)
	return gen, nil
}

// Delete ends a session and cancels its in-flight fetches
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.cancel()
	log.Printf("[SessionService] Deleted session %s", id)
	return nil
}

// Len returns the number of open sessions
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartJanitor expires idle sessions every interval until ctx is done
func (s *SessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.expire(now); n > 0 {
					log.Printf("[SessionService] Expired %d idle sessions", n)
				}
			}
		}
	}()
}

// expire removes sessions idle since before now-ttl
func (s *SessionService) expire(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			sess.cancel()
			delete(s.sessions, id)
			expired++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return expired
}

func (s *SessionService) touch(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = time.Now()
	return sess, nil
}

func (s *SessionService) fetchPoints(sess *session, gen uint64, filter models.FilterState, projectType string) {
	q := models.PointQuery{ProjectType: projectType, Limit: s.limits.Points}
	if !filter.IsAll() {
		q.Categories = filter.Categories
	}

	s.fetch(sess, func(ctx context.Context) error {
		page, err := s.sources.Points.ListPoints(ctx, q)
		if err != nil {
			return err
		}
		sess.coord.PointsReady(gen, page)
		return nil
	}, func(err error) {
		recordPointsFailure(sess.coord, gen, err)
	})
}

func (s *SessionService) fetchTotals(sess *session) {
	s.fetch(sess, func(ctx context.Context) error {
		totals, err := s.sources.Summary.SummaryTotals(ctx)
		if err != nil {
			return err
		}
		sess.coord.TotalsReady(totals)
		return nil
	}, func(err error) {
		recordFailure(sess.coord, models.SourceTotals, err)
	})
}

func (s *SessionService) fetchGeography(sess *session) {
	s.fetch(sess, func(ctx context.Context) error {
		features, err := s.sources.Geography.GeographyFeatures(ctx, s.limits.Geography)
		if err != nil {
			return err
		}
		sess.coord.GeographyReady(features)
		return nil
	}, func(err error) {
		recordFailure(sess.coord, models.SourceGeography, err)
	})
}

// fetch runs fn in the background with the session's context and a timeout.
// A failure is passed to onErr; results for a cancelled session are discarded.
func (s *SessionService) fetch(sess *session, fn func(ctx context.Context) error, onErr func(err error)) {
	sess.fetches.Add(1)
	go func() {
		defer sess.fetches.Done()

		ctx, cancel := context.WithTimeout(sess.ctx, s.fetchTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			if sess.ctx.Err() != nil {
				return
			}
			onErr(err)
		}
	}()
}

func sessionFilter(req models.SessionFilterRequest) models.FilterState {
	return models.MapViewFilter{
		Category:         req.Category,
		HighlightZip:     req.HighlightZip,
		HighlightCluster: req.HighlightCluster,
	}.FilterState()
}

// sameCategories reports whether two filters select the same points
func sameCategories(a, b models.FilterState) bool {
	if a.IsAll() || b.IsAll() {
		return a.IsAll() == b.IsAll()
	}
	set := make(map[models.Category]struct{}, len(a.Categories))
	for _, c := range a.Categories {
		set[c] = struct{}{}
	}
	other := make(map[models.Category]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		if _, ok := set[c]; !ok {
			return false
		}
		other[c] = struct{}{}
	}
	return len(other) == len(set)
}
