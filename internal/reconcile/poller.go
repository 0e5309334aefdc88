package reconcile

import (
	"context"
	"time"
)

// Poller defaults mirror the verify page behaviour: a couple of
// seconds between attempts, bounded to about a minute of waiting.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Result is the poller's terminal state.
type Result struct {
	Credited bool
	Balance  int64
	Attempts int
	// TimedOut is set when every attempt saw a pending state. It is a
	// terminal "try again later" answer, not a failure.
	TimedOut bool
}

// PollConfig tunes one polling run.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Sleeper abstracts the inter-attempt wait for deterministic tests.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepWall(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller drives repeated CheckCredited reads until the reference is
// credited or the attempt budget is spent. Each attempt is an
// independent read; nothing is held between attempts.
type Poller struct {
	checker *Checker
	cfg     PollConfig
	sleep   Sleeper
}

func NewPoller(checker *Checker, cfg PollConfig) *Poller {
	return &Poller{
		checker: checker,
		cfg:     cfg.withDefaults(),
		sleep:   sleepWall,
	}
}

// WithSleeper replaces the wait function. Test hook.
func (p *Poller) WithSleeper(sleep Sleeper) *Poller {
	if sleep != nil {
		p.sleep = sleep
	}
	return p
}

// Wait polls until credited or out of attempts. A timeout is reported
// in the result, not as an error; errors are reserved for storage
// failures and context cancellation.
func (p *Poller) Wait(ctx context.Context, userID, reference string) (Result, error) {
	result := Result{}
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		status, err := p.checker.CheckCredited(ctx, userID, reference)
		if err != nil {
			return result, err
		}
		if status.Credited {
			result.Credited = true
			result.Balance = status.Balance
			return result, nil
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return result, err
		}
	}
	result.TimedOut = true
	return result, nil
}
