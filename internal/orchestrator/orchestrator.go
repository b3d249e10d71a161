package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Source is one deadline-bearing session module (svincolati, auction).
// The scheduler sleeps until the earliest deadline across all sources
// and fires HandleDeadline for each due session.
type Source interface {
	NextDeadline(ctx context.Context) (*time.Time, error)
	DueSessionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	HandleDeadline(ctx context.Context, sessionID uuid.UUID) error
}

// NamedSource pairs a source with a label for logging.
type NamedSource struct {
	Name   string
	Source Source
}

type workItem struct {
	source    NamedSource
	sessionID uuid.UUID
}

// Orchestrator owns the timers: one scheduler loop plus a worker pool
// firing timeout actions. Session writes happen inside the modules'
// own locked transactions, so duplicate wakeups are harmless; the
// in-flight set just avoids queueing the same session twice.
type Orchestrator struct {
	sources    []NamedSource
	clock      clockwork.Clock
	wakeCh     chan struct{}
	instanceID string

	numWorkers int
	workCh     chan workItem

	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

const (
	defaultNumWorkers = 4
	idlePollDuration  = 5 * time.Second
)

func New(clock clockwork.Clock, sources ...NamedSource) *Orchestrator {
	return &Orchestrator{
		sources:    sources,
		clock:      clock,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],
		numWorkers: defaultNumWorkers,
		workCh:     make(chan workItem, defaultNumWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake nudges the scheduler to re-read deadlines. Session apps call it
// after every mutation that may have moved a deadline.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until the context ends: sleep to the earliest deadline,
// then queue every due session for its source's timeout handler.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer func() {
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	timer := o.clock.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.wakeCh:
			// Drain stale wakeups before reading deadlines.
		default:
		}

		deadline, err := o.earliestDeadline(ctx)
		if err != nil {
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching next deadline")
			if !o.sleep(ctx, timer, time.Second) {
				return nil
			}
			continue
		}

		if deadline == nil {
			if !o.sleep(ctx, timer, idlePollDuration) {
				return nil
			}
			continue
		}

		if wait := deadline.Sub(o.clock.Now()); wait > 0 {
			if !o.sleep(ctx, timer, wait) {
				return nil
			}
		}

		o.dispatchDue(ctx)
	}
}

// sleep waits for the duration, an early wakeup, or shutdown.
// Returns false on shutdown.
func (o *Orchestrator) sleep(ctx context.Context, timer clockwork.Timer, d time.Duration) bool {
	timer.Reset(d)
	select {
	case <-timer.Chan():
	case <-o.wakeCh:
		log.Debug().Str("instance", o.instanceID).Msg("woken up early")
	case <-ctx.Done():
		return false
	}
	return true
}

func (o *Orchestrator) earliestDeadline(ctx context.Context) (*time.Time, error) {
	var earliest *time.Time
	for _, src := range o.sources {
		d, err := src.Source.NextDeadline(ctx)
		if err != nil {
			return nil, err
		}
		if d != nil && (earliest == nil || d.Before(*earliest)) {
			earliest = d
		}
	}
	return earliest, nil
}

func (o *Orchestrator) dispatchDue(ctx context.Context) {
	now := o.clock.Now()
	for _, src := range o.sources {
		ids, err := src.Source.DueSessionIDs(ctx, now)
		if err != nil {
			log.Error().Err(err).Str("source", src.Name).Msg("error fetching due sessions")
			continue
		}

		for _, sessionID := range ids {
			o.inFlightMu.Lock()
			if o.inFlight[sessionID] {
				o.inFlightMu.Unlock()
				continue
			}
			o.inFlight[sessionID] = true
			o.inFlightMu.Unlock()

			select {
			case <-ctx.Done():
				o.inFlightMu.Lock()
				delete(o.inFlight, sessionID)
				o.inFlightMu.Unlock()
				return
			case o.workCh <- workItem{source: src, sessionID: sessionID}:
				log.Debug().
					Str("source", src.Name).
					Str("session_id", sessionID.String()).
					Str("instance", o.instanceID).
					Msg("queued timeout for worker")
			}
		}
	}
}

func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-o.workCh:
			if !ok {
				return
			}

			log.Info().
				Str("source", item.source.Name).
				Str("session_id", item.sessionID.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("firing timeout")

			if err := item.source.Source.HandleDeadline(ctx, item.sessionID); err != nil {
				log.Error().
					Err(err).
					Str("source", item.source.Name).
					Str("session_id", item.sessionID.String()).
					Msg("timeout handling failed")
			}

			o.inFlightMu.Lock()
			delete(o.inFlight, item.sessionID)
			o.inFlightMu.Unlock()
		}
	}
}
