package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	githubapi "github.com/thep200/github-top100/internal/github_api"
	"github.com/thep200/github-top100/pkg/log"
	"github.com/thep200/github-top100/pkg/metrics"
)

// Stats chứa thống kê về các lượt sync
type Stats struct {
	IsRunning      bool        `json:"isRunning"`
	StartTime      time.Time   `json:"startTime"`
	Duration       string      `json:"duration"`
	Passes         int         `json:"passes"`
	FailedPasses   int         `json:"failedPasses"`
	ReposProcessed int         `json:"reposProcessed"`
	LastError      string      `json:"lastError"`
	LastResult     *PassResult `json:"lastResult,omitempty"`
}

// Runner serializes passes of one Orchestrator. At most one pass runs at a
// time; a second caller gets ErrPassInProgress instead of waiting.
type Runner struct {
	Logger       log.Logger
	Orchestrator *Orchestrator
	Metrics      *metrics.Manager

	passMu  sync.Mutex
	statsMu sync.RWMutex
	stats   Stats
}

func NewRunner(logger log.Logger, orchestrator *Orchestrator, m *metrics.Manager) *Runner {
	return &Runner{
		Logger:       logger,
		Orchestrator: orchestrator,
		Metrics:      m,
	}
}

// RunOnce runs a single pass tagged with a fresh pass id.
func (r *Runner) RunOnce(ctx context.Context) (PassResult, error) {
	if !r.passMu.TryLock() {
		return PassResult{}, ErrPassInProgress
	}
	defer r.passMu.Unlock()

	ctx = log.WithPassID(ctx, uuid.NewString())
	start := time.Now()

	r.statsMu.Lock()
	r.stats.IsRunning = true
	r.stats.StartTime = start
	r.stats.Duration = ""
	r.statsMu.Unlock()

	r.Logger.Info(ctx, "Sync pass started")
	result, err := r.Orchestrator.Pass(ctx)
	elapsed := time.Since(start)

	r.Metrics.RecordPass(passOutcome(result, err), elapsed)

	r.statsMu.Lock()
	r.stats.IsRunning = false
	r.stats.Duration = elapsed.Round(time.Millisecond).String()
	r.stats.Passes++
	r.stats.ReposProcessed += result.Processed
	r.stats.LastResult = &result
	r.stats.LastError = ""
	if err != nil {
		r.stats.FailedPasses++
		r.stats.LastError = err.Error()
	}
	r.statsMu.Unlock()

	if err != nil {
		r.Logger.Error(ctx, "Sync pass failed after %v: %v", elapsed, err)
	}
	return result, err
}

// Run starts a pass right away and then every interval until ctx is done. A
// running pass is not interrupted by the ticker.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); errors.Is(err, ErrPassInProgress) {
			r.Logger.Warn(ctx, "Scheduled pass skipped: another pass is running")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stats returns a copy of the current statistics.
func (r *Runner) Stats() Stats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return r.stats
}

func passOutcome(result PassResult, err error) string {
	switch {
	case githubapi.IsRateLimited(err), result.RateLimited:
		return metrics.OutcomeRateLimited
	case err != nil:
		return metrics.OutcomeFailed
	case result.Wrapped, !result.Advanced():
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}
