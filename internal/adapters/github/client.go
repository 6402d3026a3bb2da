// Package github fetches a user's public activity from the GitHub REST API
// and normalizes it into an ActivityRecord. The client paginates bounded by
// a page ceiling, consults the shared cycle budget before every request and
// retries transient failures with exponential backoff.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/gitrank/internal/domain/budget"
	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/pkg/logger"
	"github.com/okian/gitrank/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBaseURL        = "https://api.github.com"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxAttempts    = 3
	defaultBackoffBase    = 500 * time.Millisecond
	defaultPerPage        = 100
	defaultPageLimit      = 10 // pagination ceiling per activity type
)

// HTTPClient is the transport seam; *http.Client satisfies it and tests
// substitute a stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher is the contract consumed by the orchestrator's workers.
type Fetcher interface {
	// FetchActivity returns the user's normalized activity counts or one
	// of ErrNotFound, ErrRateLimited, ErrTransient, ErrUpstream.
	FetchActivity(ctx context.Context, username string, b budget.Tracker) (model.ActivityRecord, error)

	// ProfileExists verifies the username has a public profile.
	ProfileExists(ctx context.Context, username string, b budget.Tracker) error
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests point it at httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithToken sets the optional bearer token that raises the quota ceiling.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient substitutes the transport.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryPolicy sets the attempt ceiling and the backoff base delay.
func WithRetryPolicy(attempts int, backoffBase time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if backoffBase > 0 {
			c.backoffBase = backoffBase
		}
	}
}

// WithPageLimit caps how many pages are consumed per activity type.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// WithPerPage sets the upstream page size.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= 100 {
			c.perPage = n
		}
	}
}

// WithRequestTimeout bounds each outbound request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client implements Fetcher against the GitHub REST API.
type Client struct {
	baseURL     string
	token       string
	http        HTTPClient
	timeout     time.Duration
	maxAttempts int
	backoffBase time.Duration
	perPage     int
	pageLimit   int
	logger      logger.Logger
}

// NewClient creates a GitHub client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		timeout:     defaultRequestTimeout,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		perPage:     defaultPerPage,
		pageLimit:   defaultPageLimit,
		logger:      logger.Get().Named("github"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}

	return c
}

// FetchActivity collects all activity counts for one user. It is stateless
// apart from the shared budget tracker passed in by the cycle.
func (c *Client) FetchActivity(ctx context.Context, username string, b budget.Tracker) (model.ActivityRecord, error) {
	var rec model.ActivityRecord
	var err error

	if rec.PRsOpened, err = c.searchCount(ctx, b, "type:pr author:"+username); err != nil {
		return model.ActivityRecord{}, err
	}
	if rec.PRsMerged, err = c.searchCount(ctx, b, "type:pr author:"+username+" is:merged"); err != nil {
		return model.ActivityRecord{}, err
	}
	if rec.IssuesCreated, err = c.searchCount(ctx, b, "type:issue author:"+username); err != nil {
		return model.ActivityRecord{}, err
	}
	if rec.IssuesClosed, err = c.searchCount(ctx, b, "type:issue author:"+username+" is:closed"); err != nil {
		return model.ActivityRecord{}, err
	}

	repos, err := c.listRepos(ctx, b, username)
	if err != nil {
		return model.ActivityRecord{}, err
	}
	rec.ReposContributed = int64(len(repos))

	if rec.StarsGiven, err = c.countPaginated(ctx, b, "/users/"+url.PathEscape(username)+"/starred"); err != nil {
		return model.ActivityRecord{}, err
	}

	if rec.Commits, err = c.commitCount(ctx, b, username, repos); err != nil {
		return model.ActivityRecord{}, err
	}

	return rec, nil
}

// ProfileExists checks that the username resolves to a public profile.
func (c *Client) ProfileExists(ctx context.Context, username string, b budget.Tracker) error {
	var v struct {
		Login string `json:"login"`
	}
	return c.getJSON(ctx, b, "/users/"+url.PathEscape(username), &v)
}

// repo carries the fields needed to query per-repo contributors.
type repo struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// searchCount returns the total_count of a search query.
func (c *Client) searchCount(ctx context.Context, b budget.Tracker, query string) (int64, error) {
	var v struct {
		TotalCount int64 `json:"total_count"`
	}
	path := "/search/issues?q=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, b, path, &v); err != nil {
		return 0, err
	}
	if v.TotalCount < 0 {
		return 0, fmt.Errorf("negative total_count for %q: %w", query, ErrUpstream)
	}
	return v.TotalCount, nil
}

// listRepos pages through the user's repositories up to the page ceiling.
func (c *Client) listRepos(ctx context.Context, b budget.Tracker, username string) ([]repo, error) {
	var all []repo
	base := "/users/" + url.PathEscape(username) + "/repos"
	for page := 1; page <= c.pageLimit; page++ {
		var batch []repo
		path := fmt.Sprintf("%s?per_page=%d&page=%d", base, c.perPage, page)
		if err := c.getJSON(ctx, b, path, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < c.perPage {
			break
		}
	}
	return all, nil
}

// countPaginated counts items of a paginated collection endpoint up to the
// page ceiling.
func (c *Client) countPaginated(ctx context.Context, b budget.Tracker, base string) (int64, error) {
	var total int64
	for page := 1; page <= c.pageLimit; page++ {
		var batch []json.RawMessage
		path := fmt.Sprintf("%s?per_page=%d&page=%d", base, c.perPage, page)
		if err := c.getJSON(ctx, b, path, &batch); err != nil {
			return 0, err
		}
		total += int64(len(batch))
		if len(batch) < c.perPage {
			break
		}
	}
	return total, nil
}

// commitCount sums the user's contributions across their repositories.
// One contributors request per repo; the budget tracker bounds the damage
// for very active users.
func (c *Client) commitCount(ctx context.Context, b budget.Tracker, username string, repos []repo) (int64, error) {
	type contributor struct {
		Login         string `json:"login"`
		Contributions int64  `json:"contributions"`
	}

	var total int64
	for _, r := range repos {
		path := fmt.Sprintf("/repos/%s/%s/contributors?per_page=%d",
			url.PathEscape(r.Owner.Login), url.PathEscape(r.Name), c.perPage)
		var contributors []contributor
		if err := c.getJSON(ctx, b, path, &contributors); err != nil {
			// An empty repository answers 404 for contributors;
			// that is zero commits, not a missing user.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, err
		}
		for _, cb := range contributors {
			if cb.Login == username {
				total += cb.Contributions
				break
			}
		}
	}
	return total, nil
}

// getJSON performs one budgeted GET with bounded retries and decodes the
// JSON body into v.
func (c *Client) getJSON(ctx context.Context, b budget.Tracker, path string, v any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return fmt.Errorf("backoff interrupted: %w", err)
			}
		}

		if !b.Acquire() {
			return fmt.Errorf("get %s: %w", path, ErrRateLimited)
		}

		retriable, err := c.doOnce(ctx, b, path, v)
		if err == nil {
			return nil
		}
		if !retriable {
			return err
		}
		lastErr = err
		c.logger.Warn(ctx, "request failed, will retry",
			logger.String("path", path),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	metrics.RecordAPIError("transient")
	return fmt.Errorf("get %s: attempts exhausted: %w: %w", path, ErrTransient, lastErr)
}

// doOnce performs a single request. The bool reports whether the failure is
// retriable.
func (c *Client) doOnce(ctx context.Context, b budget.Tracker, path string, v any) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	metrics.RecordAPICall()
	resp, err := c.http.Do(req)
	metrics.RecordAPICallLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		// Timeouts and connection failures are retriable.
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.observeRateHeaders(b, resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			metrics.RecordAPIError("upstream")
			return false, fmt.Errorf("decode response for %s: %v: %w", path, err, ErrUpstream)
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordAPIError("not_found")
		return false, fmt.Errorf("get %s: %w", path, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordAPIError("rate_limited")
		return false, fmt.Errorf("get %s: status %d: %w", path, resp.StatusCode, ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.RecordAPIError("upstream")
		return false, fmt.Errorf("get %s: status %d: %s: %w", path, resp.StatusCode, body, ErrUpstream)
	}
}

// observeRateHeaders folds X-RateLimit-Remaining/Reset into the budget.
func (c *Client) observeRateHeaders(b budget.Tracker, resp *http.Response) {
	remainingHdr := resp.Header.Get("X-RateLimit-Remaining")
	if remainingHdr == "" {
		return
	}
	remaining, err := strconv.ParseInt(remainingHdr, 10, 64)
	if err != nil {
		return
	}

	var reset time.Time
	if resetHdr := resp.Header.Get("X-RateLimit-Reset"); resetHdr != "" {
		if unix, err := strconv.ParseInt(resetHdr, 10, 64); err == nil {
			reset = time.Unix(unix, 0)
		}
	}

	b.Observe(remaining, reset)
	metrics.UpdateBudgetRemaining(b.Remaining())
}

// sleepBackoff waits base * 2^(attempt-1), honoring cancellation.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := c.backoffBase << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
