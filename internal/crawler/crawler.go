// Package crawler drives sync passes: it walks the public repository listing
// from a persisted cursor and feeds the ranking store.
package crawler

import (
	"context"
	"errors"

	githubapi "github.com/thep200/github-top100/internal/github_api"
	"github.com/thep200/github-top100/internal/model"
)

// ErrPassInProgress is returned when a pass is requested while another runs.
var ErrPassInProgress = errors.New("crawler: sync pass already in progress")

// Source reads repositories from the external API.
type Source interface {
	ListRepositories(ctx context.Context, since int64) ([]githubapi.RepositoryRef, error)
	RepositoryDetail(ctx context.Context, owner, name string) (model.RepositorySummary, error)
	RepositoryActivity(ctx context.Context, owner, name string) ([]githubapi.Event, error)
}

// Store persists the ranking, daily activity and the cursor.
type Store interface {
	Cursor(ctx context.Context) (int64, error)
	SaveCursor(ctx context.Context, cursor int64) error
	RecordAttempt(ctx context.Context, passErr error) error
	UpsertActivity(ctx context.Context, entries []model.DailyActivity) error
	UpsertRanking(ctx context.Context, batch []model.RepositorySummary) error
	Count(ctx context.Context) (int64, error)
}

// Publisher announces finished passes.
type Publisher interface {
	PublishPass(ctx context.Context, msg model.PassMessage) error
}

// PassResult summarizes one pass.
type PassResult struct {
	PassID       string                    `json:"passId"`
	CursorBefore int64                     `json:"cursorBefore"`
	CursorAfter  int64                     `json:"cursorAfter"`
	Listed       int                       `json:"listed"`
	Processed    int                       `json:"processed"`
	Blocked      int                       `json:"blocked"`
	Failed       int                       `json:"failed"`
	ActivityRows int                       `json:"activityRows"`
	RateLimited  bool                      `json:"rateLimited"`
	Wrapped      bool                      `json:"wrapped"`
	Batch        []model.RepositorySummary `json:"-"`
}

// Advanced reports whether the pass moved the cursor.
func (r PassResult) Advanced() bool {
	return r.CursorAfter != r.CursorBefore
}
