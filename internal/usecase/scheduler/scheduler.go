package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/pkg/config"
)

// ActivityType classifies an inbound user activity signal
type ActivityType string

const (
	ActivityAppLoad       ActivityType = "app_load"
	ActivityCalendarView  ActivityType = "calendar_view"
	ActivityMeetingCreate ActivityType = "meeting_create"
	ActivityGeneral       ActivityType = "general"
)

// IsValid checks if the activity type is valid
func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityAppLoad, ActivityCalendarView, ActivityMeetingCreate, ActivityGeneral:
		return true
	}
	return false
}

// ChangeFrequency classifies how busy a user's calendar has been lately
type ChangeFrequency int

const (
	FrequencyLow ChangeFrequency = iota
	FrequencyMedium
	FrequencyHigh
)

// SyncRunner runs one reconciliation pass for a user
type SyncRunner interface {
	SyncUser(ctx context.Context, userID uuid.UUID, trigger entities.SyncType) (*entities.SyncLog, error)
}

// Scheduler is the supervisor registry of per-user sync actors. Each actor
// owns its user's timers and cadence state; the registry only starts, stops
// and routes signals. Actor state is process-local and rebuildable: a
// restart begins every user at the normal cadence and reclassifies from the
// first completed pass.
type Scheduler struct {
	runner SyncRunner
	cfg    config.SyncConfig
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	actors map[uuid.UUID]*userActor
	wg     sync.WaitGroup
}

// NewScheduler creates the scheduler supervisor
func NewScheduler(runner SyncRunner, cfg config.SyncConfig, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		actors: make(map[uuid.UUID]*userActor),
	}
}

// Start ensures an actor is running for the user
func (s *Scheduler) Start(userID uuid.UUID) {
	s.actorFor(userID)
}

// Stop tears down the user's actor, cancelling its pending timers. An
// in-flight sync pass is allowed to finish.
func (s *Scheduler) Stop(userID uuid.UUID) {
	s.mu.Lock()
	actor, ok := s.actors[userID]
	if ok {
		delete(s.actors, userID)
	}
	s.mu.Unlock()

	if ok {
		close(actor.stop)
	}
}

// StopAll shuts down every actor and waits for in-flight passes to finish
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for userID, actor := range s.actors {
		close(actor.stop)
		delete(s.actors, userID)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// SignalActivity routes one activity signal to the user's actor, starting
// one if needed. Signals are dropped rather than blocking when the actor is
// flooded; an equivalent evaluation is already pending.
func (s *Scheduler) SignalActivity(userID uuid.UUID, activity ActivityType) {
	actor := s.actorFor(userID)
	select {
	case actor.signals <- activity:
	default:
	}
}

// Trigger requests an immediate sync outside the timer cadence, used by the
// webhook receiver. Coalesces when an equivalent trigger is already queued.
func (s *Scheduler) Trigger(userID uuid.UUID, syncType entities.SyncType) {
	actor := s.actorFor(userID)
	select {
	case actor.triggers <- syncType:
	default:
	}
}

func (s *Scheduler) actorFor(userID uuid.UUID) *userActor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actor, ok := s.actors[userID]; ok {
		return actor
	}

	actor := &userActor{
		userID:   userID,
		signals:  make(chan ActivityType, 8),
		triggers: make(chan entities.SyncType, 1),
		stop:     make(chan struct{}),
		interval: s.cfg.NormalInterval,
	}
	s.actors[userID] = actor

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		actor.run(s)
	}()

	s.logger.Debug("sync actor started", zap.String("user_id", userID.String()))
	return actor
}

// userActor owns one user's sync cadence. All state below is touched only
// by the actor goroutine.
type userActor struct {
	userID   uuid.UUID
	signals  chan ActivityType
	triggers chan entities.SyncType
	stop     chan struct{}

	lastActivityAt time.Time
	lastSuccessAt  time.Time
	changeFreq     ChangeFrequency
	interval       time.Duration
}

func (a *userActor) run(s *Scheduler) {
	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	debounce := time.NewTimer(s.cfg.CreateDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-a.stop:
			return

		case activity := <-a.signals:
			a.lastActivityAt = time.Now()
			switch activity {
			case ActivityAppLoad, ActivityCalendarView:
				a.runSync(s, entities.SyncTypeIncremental)
			case ActivityMeetingCreate:
				// Batches rapid-fire edits into one pull
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(s.cfg.CreateDebounce)
			case ActivityGeneral:
			}
			a.reschedule(s, timer)

		case <-debounce.C:
			a.runSync(s, entities.SyncTypeIncremental)
			a.reschedule(s, timer)

		case syncType := <-a.triggers:
			a.runSync(s, syncType)
			a.reschedule(s, timer)

		case <-timer.C:
			a.runSync(s, entities.SyncTypeIncremental)
			a.reschedule(s, timer)
		}
	}
}

// runSync executes one pass and feeds its change counts back into the
// cadence state. A pass already running for this user means an equivalent
// sync is in flight, so the trigger is coalesced silently.
func (a *userActor) runSync(s *Scheduler, syncType entities.SyncType) {
	log, err := s.runner.SyncUser(s.ctx, a.userID, syncType)
	if err != nil {
		if errors.Is(err, entities.ErrSyncInProgress) {
			return
		}
		if errors.Is(err, entities.ErrConfigurationMissing) {
			// No calendar to poll: park the actor instead of retrying
			// every interval. Reconnecting restarts it.
			s.logger.Info("sync actor parked, user has no calendar configured",
				zap.String("user_id", a.userID.String()))
			s.Stop(a.userID)
			return
		}
		s.logger.Warn("scheduled sync failed",
			zap.String("user_id", a.userID.String()),
			zap.Error(err))
		return
	}

	a.lastSuccessAt = time.Now()
	a.changeFreq = classifyChanges(log)
}

// reschedule re-evaluates the polling interval and resets the timer
func (a *userActor) reschedule(s *Scheduler, timer *time.Timer) {
	interval := a.selectInterval(s.cfg)
	if interval != a.interval {
		s.logger.Debug("sync interval changed",
			zap.String("user_id", a.userID.String()),
			zap.Duration("from", a.interval),
			zap.Duration("to", interval))
		a.interval = interval
	}

	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(a.interval)
}

// selectInterval applies the cadence policy: recent activity wins, then
// observed change frequency, with the slow lane reserved for quiet
// calendars without a successful sync in a while.
func (a *userActor) selectInterval(cfg config.SyncConfig) time.Duration {
	if time.Since(a.lastActivityAt) < cfg.ActivityTimeout {
		return cfg.FastInterval
	}
	if a.changeFreq == FrequencyHigh {
		return cfg.NormalInterval
	}
	if a.changeFreq == FrequencyLow && time.Since(a.lastSuccessAt) > cfg.SlowThreshold {
		return cfg.SlowInterval
	}
	return cfg.NormalInterval
}

// classifyChanges buckets a pass by how many of its change counters moved
func classifyChanges(log *entities.SyncLog) ChangeFrequency {
	moved := 0
	if log.Created > 0 {
		moved++
	}
	if log.Updated > 0 {
		moved++
	}
	if log.Deleted > 0 {
		moved++
	}

	switch {
	case moved >= 3:
		return FrequencyHigh
	case moved >= 1:
		return FrequencyMedium
	default:
		return FrequencyLow
	}
}
