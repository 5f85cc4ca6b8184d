package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/thep200/github-top100/internal/model"
)

const dateLayout = "2006-01-02"

var (
	defaultSince = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultUntil = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Repository is one row of GET /repos/top100
type Repository struct {
	Repo         string  `json:"repo"`
	Owner        string  `json:"owner"`
	PositionCur  int     `json:"position_cur"`
	PositionPrev int     `json:"position_prev"`
	Stars        int     `json:"stars"`
	Watchers     int     `json:"watchers"`
	Forks        int     `json:"forks"`
	OpenIssues   int     `json:"open_issues"`
	Language     *string `json:"language"`
}

// Activity is one row of GET /repos/{owner}/{repo}/activity
type Activity struct {
	Date    string   `json:"date"`
	Commits int      `json:"commits"`
	Authors []string `json:"authors"`
}

func (h *Handler) getTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Reader.TopN(r.Context(), q.Get("sort_by"), q.Get("order"))
	if errors.Is(err, model.ErrInvalidSort) {
		h.writeError(w, r, http.StatusBadRequest, "sort_by must be one of repo, owner, position, stars, watchers, forks, open_issues, language and order one of asc, desc")
		return
	}
	if err != nil {
		h.Logger.Error(r.Context(), "Failed to fetch top repositories: %v", err)
		h.writeError(w, r, http.StatusInternalServerError, "failed to fetch repositories")
		return
	}

	repositories := make([]Repository, 0, len(entries))
	for _, e := range entries {
		repositories = append(repositories, Repository{
			Repo:         e.Repo,
			Owner:        e.Owner,
			PositionCur:  e.PositionCur,
			PositionPrev: e.PositionPrev,
			Stars:        e.Stars,
			Watchers:     e.Watchers,
			Forks:        e.Forks,
			OpenIssues:   e.OpenIssues,
			Language:     e.Language,
		})
	}
	h.writeJSON(w, r, http.StatusOK, repositories)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	since, ok := parseDate(r.URL.Query().Get("since"), defaultSince)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "since must be a date formatted as YYYY-MM-DD")
		return
	}
	until, ok := parseDate(r.URL.Query().Get("until"), defaultUntil)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "until must be a date formatted as YYYY-MM-DD")
		return
	}
	if until.Before(since) {
		h.writeError(w, r, http.StatusBadRequest, "until must not be before since")
		return
	}

	owner, repo := r.PathValue("owner"), r.PathValue("repo")
	rows, err := h.Reader.GetActivity(r.Context(), owner, repo, since, until)
	if err != nil {
		h.Logger.Error(r.Context(), "Failed to fetch activity of %s/%s: %v", owner, repo, err)
		h.writeError(w, r, http.StatusInternalServerError, "failed to fetch activity")
		return
	}

	activity := make([]Activity, 0, len(rows))
	for _, row := range rows {
		authors := []string(row.Authors)
		if authors == nil {
			authors = []string{}
		}
		activity = append(activity, Activity{
			Date:    row.Date.Format(dateLayout),
			Commits: row.Commits,
			Authors: authors,
		})
	}
	h.writeJSON(w, r, http.StatusOK, activity)
}

func parseDate(s string, fallback time.Time) (time.Time, bool) {
	if s == "" {
		return fallback, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
