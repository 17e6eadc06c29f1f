package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

// PlanState tracks where a session's plan is in its lifecycle.
type PlanState string

const (
	StateUnplanned  PlanState = "unplanned"
	StatePlanned    PlanState = "planned"
	StateRepairing  PlanState = "repairing"
	StateInfeasible PlanState = "infeasible"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	defaultSearchRadiusMeters = 80000
	defaultCandidateLimit     = 24
)

// Planner owns planning sessions and is the sole surface the conversational
// layer calls. Each session serializes its own updates; sessions for
// different users share nothing but the preference store.
type Planner struct {
	candidates ports.CandidateProvider
	travel     ports.TravelProvider
	prefs      ports.PreferenceStore
	cfg        OptimizerConfig

	// poolCache snapshots fetched candidate pools per city+interests so
	// repeated repairs within a session do not refetch.
	poolCache *gocache.Cache

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu sync.Mutex

	id     string
	userID string

	constraints domain.Constraints
	state       PlanState
	itinerary   *domain.Itinerary

	pool   []*domain.Stop
	matrix TravelMatrix
}

func NewPlanner(
	candidates ports.CandidateProvider,
	travel ports.TravelProvider,
	prefs ports.PreferenceStore,
	cfg OptimizerConfig,
) *Planner {
	return &Planner{
		candidates: candidates,
		travel:     travel,
		prefs:      prefs,
		cfg:        cfg,
		poolCache:  gocache.New(10*time.Minute, 30*time.Minute),
		sessions:   make(map[string]*session),
	}
}

// StartSession registers a new planning session and produces its first
// itinerary. The session ID is valid even when the initial constraints turn
// out to be infeasible; the caller relaxes a constraint and updates.
func (p *Planner) StartSession(ctx context.Context, userID string, cs domain.Constraints) (string, *domain.Itinerary, error) {
	if err := cs.Validate(); err != nil {
		return "", nil, fmt.Errorf("start session: %w", err)
	}

	sess := &session{
		id:          uuid.NewString(),
		userID:      userID,
		constraints: cs,
		state:       StateUnplanned,
	}

	p.mu.Lock()
	p.sessions[sess.id] = sess
	p.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	p.refreshPool(ctx, sess)
	it, err := p.plan(ctx, sess, nil, domain.ConstraintDiff{})
	if err != nil {
		return sess.id, nil, err
	}
	return sess.id, it, nil
}

// Update applies one constraint change and returns the repaired itinerary.
// Updates for a session are processed one at a time to completion; the
// optimizer assumes a stable snapshot for its duration.
func (p *Planner) Update(ctx context.Context, sessionID, field string, value any) (*domain.Itinerary, error) {
	sess, err := p.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	next, err := sess.constraints.ApplyUpdate(field, value)
	if err != nil {
		return nil, fmt.Errorf("update session %s: %w", sessionID, err)
	}

	diff := domain.Diff(sess.constraints, next)
	if diff.Empty() {
		// Setting a field to its current value replans nothing.
		return sess.itinerary, nil
	}

	prev := sess.itinerary
	sess.constraints = next
	sess.state = StateRepairing

	if diff.Has(domain.FieldCity) || diff.Has(domain.FieldInterests) || diff.Has(domain.FieldPinned) {
		p.refreshPool(ctx, sess)
	} else if diff.Has(domain.FieldMode) || diff.Has(domain.FieldDayStart) {
		sess.matrix = BuildTravelMatrix(ctx, p.travel, sess.pool, next.Mode, next.DayStart)
	}

	return p.plan(ctx, sess, prev, diff)
}

// Itinerary returns the session's current plan and lifecycle state.
func (p *Planner) Itinerary(sessionID string) (*domain.Itinerary, PlanState, error) {
	sess, err := p.session(sessionID)
	if err != nil {
		return nil, "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.itinerary, sess.state, nil
}

// Constraints returns the session's current constraint set.
func (p *Planner) Constraints(sessionID string) (domain.Constraints, error) {
	sess, err := p.session(sessionID)
	if err != nil {
		return domain.Constraints{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.constraints, nil
}

func (p *Planner) session(id string) (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// plan runs repair (or a first optimization) against the session snapshot
// and commits the outcome to the session state machine. Callers hold the
// session lock.
func (p *Planner) plan(ctx context.Context, sess *session, prev *domain.Itinerary, diff domain.ConstraintDiff) (*domain.Itinerary, error) {
	overlay := p.overlay(ctx, sess)

	it, err := Repair(ctx, prev, sess.constraints, diff, sess.pool, overlay, sess.matrix, p.cfg)
	if err != nil {
		var infeasible *domain.InfeasibleError
		if errors.As(err, &infeasible) {
			sess.state = StateInfeasible
			return nil, err
		}
		return nil, fmt.Errorf("plan session %s: %w", sess.id, err)
	}

	sess.itinerary = it
	sess.state = StatePlanned
	p.record(ctx, sess, it)
	return it, nil
}

// refreshPool fetches candidates for the session's city and interests,
// degrading to whatever is already cached (possibly nothing) when the
// candidate source is unreachable. A degraded pool never fails the session.
func (p *Planner) refreshPool(ctx context.Context, sess *session) {
	cs := sess.constraints

	categories := make([]string, 0, len(cs.Interests))
	for c := range cs.Interests {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	key := cs.City + "|" + strings.Join(categories, ",")
	if cached, ok := p.poolCache.Get(key); ok {
		sess.pool = cached.([]*domain.Stop)
	} else {
		res, err := p.candidates.ListCandidates(ctx, ports.CandidateQuery{
			City:         cs.City,
			Categories:   categories,
			RadiusMeters: defaultSearchRadiusMeters,
			Limit:        defaultCandidateLimit,
			Day:          cs.DayStart,
		})
		if err != nil {
			log.Printf("session=%s candidate lookup degraded: %v", sess.id, err)
		} else {
			if res.Truncated {
				log.Printf("session=%s candidate pool truncated city=%s n=%d", sess.id, cs.City, len(res.Stops))
			}
			sess.pool = res.Stops
			p.poolCache.Set(key, res.Stops, gocache.DefaultExpiration)
		}
	}

	sess.matrix = BuildTravelMatrix(ctx, p.travel, sess.pool, cs.Mode, cs.DayStart)
}

// overlay reads the user's learned category weights; a degraded store just
// means no personalization this plan.
func (p *Planner) overlay(ctx context.Context, sess *session) map[string]float64 {
	if p.prefs == nil || sess.userID == "" {
		return nil
	}
	weights, err := p.prefs.WeightsFor(ctx, sess.userID, sess.constraints.City)
	if err != nil {
		log.Printf("session=%s preference lookup degraded: %v", sess.id, err)
		return nil
	}
	return weights
}

// record appends the accepted plan to preference memory. Best effort: the
// store is append-only and digest-idempotent, so retries are safe and
// failures only cost personalization.
func (p *Planner) record(ctx context.Context, sess *session, it *domain.Itinerary) {
	if p.prefs == nil || sess.userID == "" || it == nil || len(it.Stops) == 0 {
		return
	}
	if err := p.prefs.Record(ctx, sess.userID, sess.constraints.City, it); err != nil {
		log.Printf("session=%s record preferences failed: %v", sess.id, err)
	}
}
