package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/activity"
	githubapi "github.com/thep200/github-top100/internal/github_api"
	"github.com/thep200/github-top100/internal/model"
	"github.com/thep200/github-top100/pkg/log"
	"github.com/thep200/github-top100/pkg/metrics"
)

// Orchestrator runs one pass at a time over the repository listing. It is not
// safe for concurrent passes; Runner enforces that.
type Orchestrator struct {
	Logger    log.Logger
	Config    *cfg.Config
	Source    Source
	Store     Store
	Publisher Publisher
	Metrics   *metrics.Manager
}

func NewOrchestrator(logger log.Logger, config *cfg.Config, source Source, store Store, publisher Publisher, m *metrics.Manager) *Orchestrator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Orchestrator{
		Logger:    logger,
		Config:    config,
		Source:    source,
		Store:     store,
		Publisher: publisher,
		Metrics:   m,
	}
}

// Pass reads the cursor, lists repositories from it and processes them in
// order. The cursor moves only when at least one repository made it into the
// ranking. A rate limit ends the loop early and keeps what was collected.
func (o *Orchestrator) Pass(ctx context.Context) (PassResult, error) {
	result := PassResult{PassID: log.PassID(ctx)}

	cursor, err := o.Store.Cursor(ctx)
	if err != nil {
		return result, err
	}
	result.CursorBefore = cursor
	result.CursorAfter = cursor

	refs, err := o.Source.ListRepositories(ctx, cursor)
	if err != nil {
		if githubapi.IsRateLimited(err) {
			result.RateLimited = true
			o.Logger.Notice(ctx, "Rate limited while listing repositories since %d", cursor)
		}
		o.recordAttempt(ctx, err)
		return result, fmt.Errorf("list repositories since %d: %w", cursor, err)
	}
	result.Listed = len(refs)

	// Hết danh sách thì quay lại từ đầu
	if len(refs) == 0 {
		initial := o.Config.Sync.InitialCursor
		o.Logger.Info(ctx, "No repositories after %d, restarting from %d", cursor, initial)
		if err := o.Store.SaveCursor(ctx, initial); err != nil {
			return result, err
		}
		result.CursorAfter = initial
		result.Wrapped = true
		o.Metrics.SetCursor(initial)
		return result, nil
	}

	next := cursor
	batch := make([]model.RepositorySummary, 0, len(refs))

loop:
	for _, ref := range refs {
		if ctx.Err() != nil {
			o.Logger.Warn(ctx, "Pass cancelled after %d repositories", len(batch))
			break loop
		}

		summary, err := o.Source.RepositoryDetail(ctx, ref.Owner, ref.Name)
		switch {
		case githubapi.IsAccessBlocked(err):
			result.Blocked++
			o.Metrics.RecordRepository(metrics.OutcomeBlocked)
			o.Logger.Info(ctx, "Skip %s/%s: access blocked", ref.Owner, ref.Name)
			continue
		case githubapi.IsRateLimited(err):
			result.RateLimited = true
			o.Logger.Notice(ctx, "Rate limited at %s/%s, stopping pass", ref.Owner, ref.Name)
			break loop
		case err != nil:
			result.Failed++
			o.Metrics.RecordRepository(metrics.OutcomeFailed)
			o.Logger.Warn(ctx, "Skip %s/%s: %v", ref.Owner, ref.Name, err)
			continue
		}

		events, err := o.Source.RepositoryActivity(ctx, ref.Owner, ref.Name)
		if githubapi.IsRateLimited(err) {
			result.RateLimited = true
			o.Logger.Notice(ctx, "Rate limited reading activity of %s/%s, stopping pass", ref.Owner, ref.Name)
			break loop
		}
		if err != nil {
			o.Logger.Warn(ctx, "No activity for %s/%s this pass: %v", ref.Owner, ref.Name, err)
			events = nil
		}

		if len(events) > 0 {
			rows := activity.Aggregate(events, activity.RepoKey{Owner: summary.Owner, Repo: summary.Name})
			if err := o.Store.UpsertActivity(ctx, rows); err != nil {
				o.Logger.Error(ctx, "Activity of %s/%s not saved: %v", ref.Owner, ref.Name, err)
			} else {
				result.ActivityRows += len(rows)
				o.Metrics.RecordActivityRows(len(rows))
			}
		}

		batch = append(batch, summary)
		next = ref.ID + 1
		result.Processed++
		o.Metrics.RecordRepository(metrics.OutcomeProcessed)
	}

	// Ghi kết quả kể cả khi ctx đã bị huỷ giữa chừng
	wctx := context.WithoutCancel(ctx)

	if len(batch) == 0 {
		o.Logger.Info(ctx, "Pass made no progress, cursor stays at %d", cursor)
		o.recordAttempt(wctx, nil)
		return result, nil
	}

	if err := o.Store.UpsertRanking(wctx, batch); err != nil {
		o.Logger.Critical(ctx, "Ranking refresh failed, cursor stays at %d: %v", cursor, err)
		o.recordAttempt(wctx, err)
		return result, err
	}
	if err := o.Store.SaveCursor(wctx, next); err != nil {
		return result, err
	}
	result.CursorAfter = next
	result.Batch = batch
	o.Metrics.SetCursor(next)

	if n, err := o.Store.Count(wctx); err == nil {
		o.Metrics.SetRankingSize(int(n))
	}

	o.publish(wctx, result)

	o.Logger.Info(ctx, "Pass done: %d processed, %d blocked, %d failed, cursor %d -> %d",
		result.Processed, result.Blocked, result.Failed, result.CursorBefore, result.CursorAfter)
	return result, nil
}

func (o *Orchestrator) publish(ctx context.Context, result PassResult) {
	msg := model.PassMessage{
		PassID:       result.PassID,
		CursorBefore: result.CursorBefore,
		CursorAfter:  result.CursorAfter,
		Processed:    result.Processed,
		Blocked:      result.Blocked,
		Failed:       result.Failed,
		RateLimited:  result.RateLimited,
		FinishedAt:   time.Now(),
		Repositories: result.Batch,
	}
	if err := o.Publisher.PublishPass(ctx, msg); err != nil {
		o.Metrics.RecordPublishFailure()
		o.Logger.Warn(ctx, "Failed to publish pass summary: %v", err)
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, passErr error) {
	if err := o.Store.RecordAttempt(ctx, passErr); err != nil {
		o.Logger.Warn(ctx, "Failed to record sync attempt: %v", err)
	}
}
