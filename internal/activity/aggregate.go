// Package activity rolls raw activity events up into one row per day.
package activity

import (
	"sort"
	"time"

	"gorm.io/datatypes"

	githubapi "github.com/thep200/github-top100/internal/github_api"
	"github.com/thep200/github-top100/internal/model"
)

// RepoKey identifies the repository the events belong to.
type RepoKey struct {
	Owner string
	Repo  string
}

// Aggregate groups events by the calendar day of their timestamp, taken in the
// timestamp's own zone. Commits is the number of events of the day and
// Authors the sorted distinct actor logins. Days without events are absent.
// Rows come out in date order.
func Aggregate(events []githubapi.Event, key RepoKey) []model.DailyActivity {
	type bucket struct {
		commits int
		authors map[string]struct{}
	}

	buckets := make(map[time.Time]*bucket)
	for _, e := range events {
		d := Day(e.Timestamp)
		b, ok := buckets[d]
		if !ok {
			b = &bucket{authors: make(map[string]struct{})}
			buckets[d] = b
		}
		b.commits++
		if login := e.ActorLogin(); login != "" {
			b.authors[login] = struct{}{}
		}
	}

	days := make([]time.Time, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]model.DailyActivity, 0, len(days))
	for _, d := range days {
		b := buckets[d]
		authors := make([]string, 0, len(b.authors))
		for a := range b.authors {
			authors = append(authors, a)
		}
		sort.Strings(authors)

		out = append(out, model.DailyActivity{
			Owner:   key.Owner,
			Repo:    key.Repo,
			Date:    d,
			Commits: b.commits,
			Authors: datatypes.JSONSlice[string](authors),
		})
	}
	return out
}

// Day drops the time of day of t, keeping the date as seen in t's zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
