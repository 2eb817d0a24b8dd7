package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
)

// delta is one complete pull from the provider together with how it was
// obtained. fullWindow distinguishes a window scan (orphan sweep applies)
// from an incremental pull (tombstones are authoritative).
type delta struct {
	result     *calendar.DeltaResult
	fullWindow bool
}

// fetchDelta pulls changes from the provider. With a stored cursor it asks
// for an incremental delta; an invalid cursor falls back to a full window
// scan with a freshly minted token, the single self-healing path for cursor
// drift. Transient failures are retried with exponential backoff inside the
// call deadline.
func (s *Service) fetchDelta(ctx context.Context, provider calendar.Provider, token *oauth2.Token, calendarID, syncToken string) (*delta, error) {
	caps := provider.Capabilities()

	if syncToken != "" && caps.IncrementalSync {
		result, err := s.withRetry(ctx, func(ctx context.Context) (*calendar.DeltaResult, error) {
			return provider.ListChanges(ctx, token, calendarID, syncToken)
		})
		if err == nil {
			return &delta{result: result, fullWindow: false}, nil
		}
		if !calendar.IsCursorInvalid(err) {
			return nil, err
		}
		s.logger.Info("sync cursor expired, falling back to full resync",
			zap.String("calendar_id", calendarID))
	}

	from, to := s.windowBounds()

	result, err := s.withRetry(ctx, func(ctx context.Context) (*calendar.DeltaResult, error) {
		return provider.ListWindow(ctx, token, calendarID, from, to)
	})
	if err != nil {
		return nil, err
	}

	// A window scan must still end with a cursor for future incremental
	// pulls. Some list calls do not hand one back, so mint one explicitly.
	if result.NextSyncToken == "" && caps.IncrementalSync {
		minted, err := s.withRetry(ctx, func(ctx context.Context) (*calendar.DeltaResult, error) {
			cursor, err := provider.MintSyncToken(ctx, token, calendarID)
			return &calendar.DeltaResult{NextSyncToken: cursor}, err
		})
		if err != nil {
			return nil, err
		}
		result.NextSyncToken = minted.NextSyncToken
	}

	return &delta{result: result, fullWindow: true}, nil
}

// withRetry runs one provider call with exponential backoff on transient
// failures. Each attempt carries its own deadline so a hung call cannot
// stall the pass past the configured provider timeout. Auth and cursor
// failures are surfaced immediately so the caller can run its own
// recovery path.
func (s *Service) withRetry(ctx context.Context, call func(ctx context.Context) (*calendar.DeltaResult, error)) (*calendar.DeltaResult, error) {
	var result *calendar.DeltaResult

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()

		r, err := call(attemptCtx)
		if err != nil {
			if calendar.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxElapsedTime = s.cfg.ProviderTimeout

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return nil, perm.Err
		}
		return nil, err
	}
	return result, nil
}

// windowBounds returns the configured full-window fetch range
func (s *Service) windowBounds() (time.Time, time.Time) {
	now := time.Now()
	return now.AddDate(0, 0, -s.cfg.WindowPastDays), now.AddDate(0, 0, s.cfg.WindowFutureDays)
}

// syncTypeFor classifies the attempt for the audit log
func syncTypeFor(trigger entities.SyncType, hadToken bool) entities.SyncType {
	if trigger != entities.SyncTypeIncremental {
		return trigger
	}
	if !hadToken {
		return entities.SyncTypeInitial
	}
	return entities.SyncTypeIncremental
}
