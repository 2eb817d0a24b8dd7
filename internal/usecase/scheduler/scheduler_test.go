package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/pkg/config"
)

type fakeRunner struct {
	calls chan entities.SyncType
	err   error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{calls: make(chan entities.SyncType, 16)}
}

func (r *fakeRunner) SyncUser(ctx context.Context, userID uuid.UUID, trigger entities.SyncType) (*entities.SyncLog, error) {
	r.calls <- trigger
	if r.err != nil {
		return nil, r.err
	}
	log := entities.NewSyncLog(userID, trigger)
	log.Complete(1, 1, 0, 0)
	return log, nil
}

func (r *fakeRunner) waitForCall(t *testing.T) entities.SyncType {
	t.Helper()
	select {
	case trigger := <-r.calls:
		return trigger
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sync pass")
		return ""
	}
}

func (r *fakeRunner) expectNoCall(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case trigger := <-r.calls:
		t.Fatalf("unexpected sync pass: %s", trigger)
	case <-time.After(within):
	}
}

// Long timers keep the periodic cadence out of the way so tests observe only
// the signal-driven behavior.
func quietConfig() config.SyncConfig {
	return config.SyncConfig{
		FastInterval:    time.Hour,
		NormalInterval:  time.Hour,
		SlowInterval:    2 * time.Hour,
		ActivityTimeout: 10 * time.Minute,
		SlowThreshold:   time.Hour,
		CreateDebounce:  50 * time.Millisecond,
	}
}

func TestAppLoadTriggersImmediateSync(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.SignalActivity(userID, ActivityAppLoad)

	if trigger := runner.waitForCall(t); trigger != entities.SyncTypeIncremental {
		t.Errorf("expected incremental trigger, got %s", trigger)
	}
}

func TestWebhookTriggerRunsImmediately(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.Trigger(userID, entities.SyncTypeWebhook)

	if trigger := runner.waitForCall(t); trigger != entities.SyncTypeWebhook {
		t.Errorf("expected webhook trigger, got %s", trigger)
	}
}

func TestGeneralActivityDoesNotSync(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.SignalActivity(userID, ActivityGeneral)

	runner.expectNoCall(t, 200*time.Millisecond)
}

func TestMeetingCreateDebounces(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.SignalActivity(userID, ActivityMeetingCreate)
	s.SignalActivity(userID, ActivityMeetingCreate)
	s.SignalActivity(userID, ActivityMeetingCreate)

	runner.waitForCall(t)
	runner.expectNoCall(t, 200*time.Millisecond)
}

func TestStopCancelsPendingWork(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.SignalActivity(userID, ActivityMeetingCreate)
	s.Stop(userID)

	runner.expectNoCall(t, 200*time.Millisecond)
}

func TestUnconfiguredUserParksActor(t *testing.T) {
	runner := newFakeRunner()
	runner.err = fmt.Errorf("sync failed: %w", entities.ErrConfigurationMissing)

	cfg := quietConfig()
	cfg.FastInterval = 20 * time.Millisecond
	s := NewScheduler(runner, cfg, zap.NewNop())
	defer s.StopAll()

	userID := uuid.New()
	s.SignalActivity(userID, ActivityAppLoad)
	runner.waitForCall(t)

	// Parked: no fast-interval polling of a user with nothing to sync
	runner.expectNoCall(t, 300*time.Millisecond)
}

func TestFailedPassDoesNotCountAsSync(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("provider unavailable")
	s := NewScheduler(runner, quietConfig(), zap.NewNop())
	defer s.StopAll()

	a := &userActor{userID: uuid.New(), changeFreq: FrequencyLow}
	a.runSync(s, entities.SyncTypeIncremental)
	<-runner.calls

	if !a.lastSuccessAt.IsZero() {
		t.Error("a failed pass must not advance the last successful sync time")
	}
}

func TestSelectInterval(t *testing.T) {
	cfg := config.SyncConfig{
		FastInterval:    2 * time.Minute,
		NormalInterval:  15 * time.Minute,
		SlowInterval:    time.Hour,
		ActivityTimeout: 10 * time.Minute,
		SlowThreshold:   time.Hour,
	}

	tests := []struct {
		name     string
		actor    userActor
		expected time.Duration
	}{
		{
			name:     "recent activity wins",
			actor:    userActor{lastActivityAt: time.Now(), changeFreq: FrequencyLow},
			expected: cfg.FastInterval,
		},
		{
			name:     "busy calendar stays on normal cadence",
			actor:    userActor{lastActivityAt: time.Now().Add(-time.Hour), changeFreq: FrequencyHigh},
			expected: cfg.NormalInterval,
		},
		{
			name: "quiet calendar with stale sync slows down",
			actor: userActor{
				lastActivityAt: time.Now().Add(-time.Hour),
				lastSuccessAt:  time.Now().Add(-2 * time.Hour),
				changeFreq:     FrequencyLow,
			},
			expected: cfg.SlowInterval,
		},
		{
			name: "quiet calendar with recent sync stays normal",
			actor: userActor{
				lastActivityAt: time.Now().Add(-time.Hour),
				lastSuccessAt:  time.Now().Add(-5 * time.Minute),
				changeFreq:     FrequencyLow,
			},
			expected: cfg.NormalInterval,
		},
		{
			name: "medium change rate stays normal",
			actor: userActor{
				lastActivityAt: time.Now().Add(-time.Hour),
				lastSuccessAt:  time.Now().Add(-2 * time.Hour),
				changeFreq:     FrequencyMedium,
			},
			expected: cfg.NormalInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.selectInterval(cfg); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestClassifyChanges(t *testing.T) {
	tests := []struct {
		name                      string
		created, updated, deleted int
		expected                  ChangeFrequency
	}{
		{"no changes", 0, 0, 0, FrequencyLow},
		{"one counter moved", 5, 0, 0, FrequencyMedium},
		{"two counters moved", 1, 3, 0, FrequencyMedium},
		{"all counters moved", 1, 1, 1, FrequencyHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &entities.SyncLog{Created: tt.created, Updated: tt.updated, Deleted: tt.deleted}
			if got := classifyChanges(log); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
