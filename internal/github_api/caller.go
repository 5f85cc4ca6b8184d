// Gói githubapi cung cấp một caller cho GitHub API.
// Mọi request đều đi qua một hàm get duy nhất: gắn header cố định, thử lại khi
// lỗi mạng, và phân loại rate limit / access blocked.

package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/limiter"
	"github.com/thep200/github-top100/internal/model"
	"github.com/thep200/github-top100/pkg/log"
	"github.com/thep200/github-top100/pkg/metrics"
)

const (
	headerApiVersion    = "X-GitHub-Api-Version"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerLink          = "Link"

	msgRateLimit      = "API rate limit exceeded"
	msgSecondaryLimit = "You have exceeded a secondary rate limit"
	msgAccessBlocked  = "Repository access blocked"

	maxRetryDelay = 30 * time.Second
)

type Caller struct {
	Logger  log.Logger
	Config  *cfg.Config
	Limiter *limiter.RateLimiter
	Metrics *metrics.Manager
	Client  *http.Client
}

func NewCaller(logger log.Logger, config *cfg.Config, rl *limiter.RateLimiter, m *metrics.Manager) *Caller {
	transport := http.DefaultTransport
	if config.GithubApi.AccessToken != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.GithubApi.AccessToken}),
			Base:   http.DefaultTransport,
		}
	}

	return &Caller{
		Logger:  logger,
		Config:  config,
		Limiter: rl,
		Metrics: m,
		Client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.GithubApi.TimeoutSeconds) * time.Second,
		},
	}
}

// ListRepositories returns the public repositories whose id is greater than or
// equal to since, in id order.
func (c *Caller) ListRepositories(ctx context.Context, since int64) ([]RepositoryRef, error) {
	u := fmt.Sprintf("%s/repositories?since=%d", c.baseUrl(), since)

	var raw []*github.Repository
	if _, err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	refs := make([]RepositoryRef, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		refs = append(refs, toRef(r))
	}
	return refs, nil
}

// RepositoryDetail fetches the counters of one repository.
func (c *Caller) RepositoryDetail(ctx context.Context, owner, name string) (model.RepositorySummary, error) {
	u := fmt.Sprintf("%s/repos/%s/%s", c.baseUrl(), url.PathEscape(owner), url.PathEscape(name))

	var raw github.Repository
	if _, err := c.get(ctx, u, &raw); err != nil {
		return model.RepositorySummary{}, err
	}
	return toSummary(&raw), nil
}

// RepositoryActivity follows the Link header until no "next" page is left and
// returns every event. When a page fails, the events collected so far are
// returned together with the error.
func (c *Caller) RepositoryActivity(ctx context.Context, owner, name string) ([]Event, error) {
	q := url.Values{}
	if c.Config.GithubApi.ActivityPerPage > 0 {
		q.Set("per_page", fmt.Sprint(c.Config.GithubApi.ActivityPerPage))
	}
	if c.Config.GithubApi.ActivityType != "" {
		q.Set("activity_type", c.Config.GithubApi.ActivityType)
	}
	next := fmt.Sprintf("%s/repos/%s/%s/activity", c.baseUrl(), url.PathEscape(owner), url.PathEscape(name))
	if len(q) > 0 {
		next += "?" + q.Encode()
	}

	var events []Event
	visited := make(map[string]struct{})
	for page := 1; next != ""; page++ {
		if _, seen := visited[next]; seen {
			c.Logger.Warn(ctx, "Activity %s/%s: next link %s already fetched, stopping", owner, name, next)
			break
		}
		visited[next] = struct{}{}

		var batch []Event
		header, err := c.get(ctx, next, &batch)
		if err != nil {
			return events, err
		}
		events = append(events, batch...)
		c.Logger.Debug(ctx, "Activity %s/%s page %d: %d events", owner, name, page, len(batch))

		next = ParseNextLink(header.Get(headerLink))
	}

	return events, nil
}

func (c *Caller) baseUrl() string {
	return strings.TrimRight(c.Config.GithubApi.ApiUrl, "/")
}

// get sends one GET request and decodes a successful body into out. Transport
// failures are retried up to MaxRetries times with exponential delay; every
// response received from the server is final.
func (c *Caller) get(ctx context.Context, u string, out interface{}) (http.Header, error) {
	maxRetries := c.Config.GithubApi.MaxRetries
	delay := time.Duration(c.Config.GithubApi.RetryDelayMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.Metrics.RecordAPIRetry()
			c.Logger.Warn(ctx, "Retry %d/%d for %s: %v", attempt, maxRetries, u, lastErr)
			select {
			case <-ctx.Done():
				return nil, c.fail(&FetchError{Kind: ErrTransient, URL: u, Err: ctx.Err()})
			case <-time.After(backoff(delay, attempt)):
			}
		}

		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, c.fail(&FetchError{Kind: ErrTransient, URL: u, Err: err})
		}

		header, status, body, err := c.do(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.fail(&FetchError{Kind: ErrTransient, URL: u, Err: ctx.Err()})
			}
			lastErr = err
			continue
		}

		if fe := classify(u, status, header, body); fe != nil {
			return header, c.fail(fe)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return header, c.fail(&FetchError{Kind: ErrPermanent, URL: u, StatusCode: status, Err: err})
		}

		c.Metrics.RecordAPIRequest(metrics.OutcomeOK)
		return header, nil
	}

	return nil, c.fail(&FetchError{Kind: ErrTransient, URL: u, Err: lastErr})
}

func (c *Caller) do(ctx context.Context, u string) (http.Header, int, []byte, error) {
	c.Logger.Info(ctx, "Calling GitHub API: %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, nil, err
	}
	req.Header.Set("Accept", c.Config.GithubApi.Accept)
	req.Header.Set(headerApiVersion, c.Config.GithubApi.ApiVersion)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, err
	}

	c.Logger.Debug(ctx, "Rate limit remaining: %s", resp.Header.Get(headerRateRemaining))
	return resp.Header, resp.StatusCode, body, nil
}

// classify returns nil for a 2xx response and the matching FetchError otherwise.
// backoff doubles base for every attempt after the first, up to maxRetryDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func classify(u string, status int, header http.Header, body []byte) *FetchError {
	if status >= 200 && status < 300 {
		return nil
	}

	var msg apiMessage
	_ = json.Unmarshal(body, &msg)

	fe := &FetchError{URL: u, StatusCode: status, Message: msg.Message}
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden && header.Get(headerRateRemaining) == "0",
		strings.HasPrefix(msg.Message, msgRateLimit),
		strings.HasPrefix(msg.Message, msgSecondaryLimit):
		fe.Kind = ErrRateLimited
	case msg.Message == msgAccessBlocked:
		fe.Kind = ErrAccessBlocked
	default:
		fe.Kind = ErrPermanent
	}
	return fe
}

func (c *Caller) fail(fe *FetchError) error {
	switch {
	case errors.Is(fe, ErrRateLimited):
		c.Metrics.RecordAPIRequest(metrics.OutcomeRateLimited)
	case errors.Is(fe, ErrAccessBlocked):
		c.Metrics.RecordAPIRequest(metrics.OutcomeBlocked)
	case errors.Is(fe, ErrTransient):
		c.Metrics.RecordAPIRequest(metrics.OutcomeTransient)
	default:
		c.Metrics.RecordAPIRequest(metrics.OutcomePermanent)
	}
	return fe
}
