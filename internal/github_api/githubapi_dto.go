// Chuyển đổi phản hồi của GitHub API thành các cấu trúc dùng trong dự án

package githubapi

import (
	"time"

	"github.com/google/go-github/v80/github"

	"github.com/thep200/github-top100/internal/model"
)

// RepositoryRef is one entry of the public repository listing.
type RepositoryRef struct {
	ID    int64
	Owner string
	Name  string
}

// Event is one record of a repository's activity feed.
type Event struct {
	ID           int64        `json:"id"`
	Ref          string       `json:"ref"`
	Timestamp    time.Time    `json:"timestamp"`
	ActivityType string       `json:"activity_type"`
	Actor        *github.User `json:"actor"`
}

// ActorLogin returns the login of the user behind the event, "" when the
// actor was deleted.
func (e Event) ActorLogin() string {
	return e.Actor.GetLogin()
}

// apiMessage is the error body shape returned by the API.
type apiMessage struct {
	Message string `json:"message"`
}

func toRef(r *github.Repository) RepositoryRef {
	return RepositoryRef{
		ID:    r.GetID(),
		Owner: r.GetOwner().GetLogin(),
		Name:  r.GetName(),
	}
}

func toSummary(r *github.Repository) model.RepositorySummary {
	summary := model.RepositorySummary{
		ID:         r.GetID(),
		Owner:      r.GetOwner().GetLogin(),
		Name:       r.GetName(),
		Stars:      r.GetStargazersCount(),
		Watchers:   r.GetWatchersCount(),
		Forks:      r.GetForksCount(),
		OpenIssues: r.GetOpenIssuesCount(),
	}
	if lang := r.GetLanguage(); lang != "" {
		summary.Language = &lang
	}
	return summary
}
