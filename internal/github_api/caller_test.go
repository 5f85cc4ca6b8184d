package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/limiter"
	"github.com/thep200/github-top100/pkg/log"
	"github.com/thep200/github-top100/pkg/metrics"
)

func newTestCaller(t *testing.T, apiUrl string) (*Caller, *metrics.Manager) {
	t.Helper()
	config, err := (&cfg.MockLoader{}).Load()
	require.NoError(t, err)
	config.GithubApi.ApiUrl = apiUrl
	config.GithubApi.AccessToken = "secret"

	logger, _ := log.NewCslLogger()
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))
	return NewCaller(logger, config, limiter.NewRateLimiter(0), m), m
}

func TestCaller_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, "/repositories", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("since"))
		fmt.Fprint(w, `[{"id":7,"name":"hello","owner":{"login":"octo"}},{"id":9,"name":"world","owner":{"login":"cat"}}]`)
	}))
	defer srv.Close()

	c, _ := newTestCaller(t, srv.URL)
	refs, err := c.ListRepositories(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []RepositoryRef{{ID: 7, Owner: "octo", Name: "hello"}, {ID: 9, Owner: "cat", Name: "world"}}, refs)
}

func TestCaller_RepositoryDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/hello":
			fmt.Fprint(w, `{"id":7,"name":"hello","owner":{"login":"octo"},"stargazers_count":10,
				"watchers_count":11,"forks_count":3,"open_issues_count":2,"language":"Go"}`)
		case "/repos/octo/bare":
			fmt.Fprint(w, `{"id":8,"name":"bare","owner":{"login":"octo"},"language":null}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := newTestCaller(t, srv.URL)

	summary, err := c.RepositoryDetail(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.ID)
	assert.Equal(t, "octo", summary.Owner)
	assert.Equal(t, "hello", summary.Name)
	assert.Equal(t, 10, summary.Stars)
	assert.Equal(t, 11, summary.Watchers)
	assert.Equal(t, 3, summary.Forks)
	assert.Equal(t, 2, summary.OpenIssues)
	require.NotNil(t, summary.Language)
	assert.Equal(t, "Go", *summary.Language)

	summary, err = c.RepositoryDetail(context.Background(), "octo", "bare")
	require.NoError(t, err)
	assert.Nil(t, summary.Language)
}

func TestCaller_Classification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		body    string
		want    error
		wantMsg string
	}{
		{"rate limit message", http.StatusForbidden, nil, `{"message":"API rate limit exceeded for 1.2.3.4."}`, ErrRateLimited, "API rate limit exceeded for 1.2.3.4."},
		{"rate limit header", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, `{}`, ErrRateLimited, ""},
		{"too many requests", http.StatusTooManyRequests, nil, ``, ErrRateLimited, ""},
		{"access blocked", http.StatusUnavailableForLegalReasons, nil, `{"message":"Repository access blocked"}`, ErrAccessBlocked, "Repository access blocked"},
		{"access blocked forbidden", http.StatusForbidden, nil, `{"message":"Repository access blocked"}`, ErrAccessBlocked, "Repository access blocked"},
		{"not found", http.StatusNotFound, nil, `{"message":"Not Found"}`, ErrPermanent, "Not Found"},
		{"server error", http.StatusBadGateway, nil, `oops`, ErrPermanent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, _ := newTestCaller(t, srv.URL)
			_, err := c.RepositoryDetail(context.Background(), "o", "r")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, tt.wantMsg, fe.Message)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "server responses are never retried")
		})
	}
}

func TestCaller_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":`)
	}))
	defer srv.Close()

	c, _ := newTestCaller(t, srv.URL)
	_, err := c.RepositoryDetail(context.Background(), "o", "r")
	assert.ErrorIs(t, err, ErrPermanent)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestCaller_RetriesTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	t.Run("recovers", func(t *testing.T) {
		c, m := newTestCaller(t, srv.URL)
		var attempts int32
		c.Client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&attempts, 1) <= 2 {
				return nil, errors.New("connection reset by peer")
			}
			return http.DefaultTransport.RoundTrip(r)
		})

		refs, err := c.ListRepositories(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, refs)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
		expected := `
# HELP github_top100_sync_api_retries_total Requests repeated after a transport failure
# TYPE github_top100_sync_api_retries_total counter
github_top100_sync_api_retries_total 2
`
		assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "github_top100_sync_api_retries_total"))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		c, _ := newTestCaller(t, srv.URL)
		var attempts int32
		c.Client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, errors.New("i/o timeout")
		})

		_, err := c.ListRepositories(context.Background(), 1)
		assert.ErrorIs(t, err, ErrTransient)
		assert.Equal(t, int32(c.Config.GithubApi.MaxRetries+1), atomic.LoadInt32(&attempts))
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		c, _ := newTestCaller(t, srv.URL)
		ctx, cancel := context.WithCancel(context.Background())
		c.Client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			cancel()
			return nil, context.Canceled
		})

		_, err := c.ListRepositories(ctx, 1)
		assert.ErrorIs(t, err, ErrTransient)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func activityServer(t *testing.T, pages []int, failOn int, failStatus int, failBody string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		if page == failOn {
			w.WriteHeader(failStatus)
			fmt.Fprint(w, failBody)
			return
		}
		if page < len(pages) {
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/activity?page=%d>; rel="next", <%s/repos/o/r/activity?page=%d>; rel="last"`,
				srv.URL, page+1, srv.URL, len(pages)))
		}
		w.Write([]byte("["))
		for i := 0; i < pages[page-1]; i++ {
			if i > 0 {
				w.Write([]byte(","))
			}
			fmt.Fprintf(w, `{"id":%d,"timestamp":"2024-01-0%dT10:00:00Z","activity_type":"push","actor":{"login":"u%d"}}`, page*1000+i, page, i%3)
		}
		w.Write([]byte("]"))
	}))
	return srv
}

func TestCaller_RepositoryActivity(t *testing.T) {
	t.Run("follows next links", func(t *testing.T) {
		srv := activityServer(t, []int{100, 100, 37}, 0, 0, "")
		defer srv.Close()

		c, _ := newTestCaller(t, srv.URL)
		events, err := c.RepositoryActivity(context.Background(), "o", "r")
		require.NoError(t, err)
		assert.Len(t, events, 237)
		assert.Equal(t, "u0", events[0].ActorLogin())
		assert.Equal(t, 3, events[236].Timestamp.Day())
	})

	t.Run("first request asks for pushes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/o/r/activity", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			assert.Equal(t, "push", r.URL.Query().Get("activity_type"))
			fmt.Fprint(w, `[]`)
		}))
		defer srv.Close()

		c, _ := newTestCaller(t, srv.URL)
		events, err := c.RepositoryActivity(context.Background(), "o", "r")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("returns partial pages on rate limit", func(t *testing.T) {
		srv := activityServer(t, []int{100, 100, 37}, 3, http.StatusForbidden, `{"message":"API rate limit exceeded"}`)
		defer srv.Close()

		c, _ := newTestCaller(t, srv.URL)
		events, err := c.RepositoryActivity(context.Background(), "o", "r")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Len(t, events, 200)
	})

	t.Run("returns partial pages when retries run out", func(t *testing.T) {
		srv := activityServer(t, []int{100, 100, 37}, 0, 0, "")
		defer srv.Close()

		c, _ := newTestCaller(t, srv.URL)
		var failed int32
		c.Client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Query().Get("page") == "3" {
				atomic.AddInt32(&failed, 1)
				return nil, errors.New("connection reset by peer")
			}
			return http.DefaultTransport.RoundTrip(r)
		})

		events, err := c.RepositoryActivity(context.Background(), "o", "r")
		assert.ErrorIs(t, err, ErrTransient)
		assert.Len(t, events, 200)
		assert.Equal(t, int32(c.Config.GithubApi.MaxRetries+1), atomic.LoadInt32(&failed))
	})

	t.Run("stops when next link repeats", func(t *testing.T) {
		var calls int32
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n > 5 {
				t.Error("activity pages requested in a loop")
				fmt.Fprint(w, `[]`)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/activity?page=2>; rel="next"`, srv.URL))
			fmt.Fprintf(w, `[{"id":%d,"timestamp":"2024-01-01T10:00:00Z","activity_type":"push","actor":{"login":"u"}}]`, n)
		}))
		defer srv.Close()

		c, _ := newTestCaller(t, srv.URL)
		events, err := c.RepositoryActivity(context.Background(), "o", "r")
		require.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, 1))
	assert.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, 3))
	assert.Equal(t, maxRetryDelay, backoff(100*time.Millisecond, 64))
	assert.Equal(t, maxRetryDelay, backoff(time.Minute, 1))
	assert.Equal(t, time.Duration(0), backoff(0, 10))
}

func TestParseNextLink(t *testing.T) {
	assert.Equal(t, "", ParseNextLink(""))
	assert.Equal(t, "https://x/2", ParseNextLink(`<https://x/2>; rel="next", <https://x/9>; rel="last"`))
	assert.Equal(t, "https://x/3", ParseNextLink(`<https://x/1>; rel="prev", <https://x/3>; rel="next"`))
	assert.Equal(t, "", ParseNextLink(`<https://x/1>; rel="prev", <https://x/1>; rel="first"`))
}
