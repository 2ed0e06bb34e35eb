// Package github implements the cicd domain on GitHub Actions and the
// issues domain on GitHub Issues, over the REST API.
//
//	token: env:GITHUB_TOKEN            # default: $GITHUB_TOKEN when set
//	repo: owner/name                   # default repository or project
//	api_url: https://api.github.com    # GitHub Enterprise: https://host/api/v3
//	timeout: 30s
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"pai/internal/adapter"
	"pai/internal/adapter/httpx"
	"pai/internal/domain"
	"pai/internal/retry"
)

// Name is the adapter name in both domains
const Name = "github"

// DefaultAPIURL is the public GitHub API
const DefaultAPIURL = "https://api.github.com"

const (
	apiVersion = "2022-11-28"
	maxPerPage = 100
	// maxItems bounds unlimited listings across pages
	maxItems = 1000
)

// Register adds the cicd and issues adapters to c
func Register(c *adapter.Catalog) {
	c.MustRegister(adapter.Manifest{
		Name:         Name,
		Domain:       domain.CICD,
		Description:  "GitHub Actions",
		Capabilities: []string{"pipelines", "runs", "trigger", "cancel", "logs", "artifacts"},
	}, adapter.Typed(NewActions))
	c.MustRegister(adapter.Manifest{
		Name:         Name,
		Domain:       domain.Issues,
		Description:  "GitHub Issues",
		Capabilities: []string{"list", "get", "create", "update"},
	}, adapter.Typed(NewIssues))
}

// client is the REST plumbing shared by both providers
type client struct {
	name   string
	domain domain.Domain
	base   *url.URL
	repo   string
	http   *http.Client
	retry  retry.Options
	logger *slog.Logger
}

func newClient(p adapter.Params, d domain.Domain) (*client, error) {
	base, err := url.Parse(strings.TrimSuffix(p.Options.String("api_url", DefaultAPIURL), "/"))
	if err != nil || base.Host == "" {
		return nil, domain.ConfigurationError(d, "adapter %s: invalid api_url", p.Name(Name))
	}

	token, err := p.Options.Secret("token")
	if err != nil {
		return nil, domain.ConfigurationError(d, "%v", err)
	}
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	name := p.Name(Name)
	tr := &httpx.Transport{
		Domain:   d,
		Adapter:  name,
		Token:    token,
		AuthHost: base.Host,
		Header: http.Header{
			"Accept":               {"application/vnd.github+json"},
			"User-Agent":           {"pai"},
			"X-Github-Api-Version": {apiVersion},
		},
		Logger: p.Log(),
	}

	opts := httpx.RetryOptions(p.Log())
	opts.InitialDelay = p.Options.Duration("retry_delay", retry.DefaultInitialDelay)

	return &client{
		name:   name,
		domain: d,
		base:   base,
		repo:   p.Options.String("repo", ""),
		http:   httpx.NewClient(tr, p.Options.Duration("timeout", httpx.DefaultTimeout)),
		retry:  opts,
		logger: p.Log(),
	}, nil
}

// call describes one JSON request
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// entity and id name what a 404 means
	entity string
	id     string
	// once disables retries
	once bool
}

// repoPath returns "repos/<owner>/<name>" for repo, defaulting to the
// configured repository
func (c *client) repoPath(repo string) (string, error) {
	if repo == "" {
		repo = c.repo
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", domain.ConfigurationError(c.domain, "repository must be owner/name, got %q", repo)
	}
	return "repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name), nil
}

func (c *client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do runs a JSON call and returns the response headers. GETs are retried
// on transient failures; writes are attempted once.
func (c *client) do(ctx context.Context, cl call) (http.Header, error) {
	return c.doURL(ctx, c.url(cl.path, cl.query), cl)
}

func (c *client) doURL(ctx context.Context, rawURL string, cl call) (http.Header, error) {
	var payload []byte
	if cl.body != nil {
		var err error
		if payload, err = json.Marshal(cl.body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	opts := c.retry
	if cl.method != http.MethodGet || cl.once {
		opts.MaxAttempts = 1
	}

	header, err := retry.Value(ctx, func(ctx context.Context) (http.Header, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, cl.method, rawURL, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := httpx.CheckResponse(resp); err != nil {
			return nil, err
		}
		if cl.out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
				return nil, fmt.Errorf("decode %s: %w", cl.path, err)
			}
		}
		return resp.Header, nil
	}, opts)
	if err != nil {
		return nil, c.wrap(err, cl.entity, cl.id)
	}
	return header, nil
}

// list follows Link pagination, decoding each page with decode, until
// limit items (maxItems when limit <= 0) have been collected
func list[T any](ctx context.Context, c *client, cl call, limit int, decode func(page []byte) ([]T, error)) ([]T, error) {
	if limit <= 0 || limit > maxItems {
		limit = maxItems
	}
	if cl.query == nil {
		cl.query = url.Values{}
	}
	cl.query.Set("per_page", fmt.Sprint(min(limit, maxPerPage)))

	items := []T{}
	next := c.url(cl.path, cl.query)
	for next != "" && len(items) < limit {
		var raw json.RawMessage
		cl.out = &raw
		header, err := c.doURL(ctx, next, cl)
		if err != nil {
			return nil, err
		}
		page, err := decode(raw)
		if err != nil {
			return nil, domain.ProviderFailed(c.domain, c.name, fmt.Errorf("decode %s: %w", cl.path, err))
		}
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
		next = nextLink(header.Get("Link"))
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// stream copies a raw download (logs, artifact archives) to w
func (c *client) stream(ctx context.Context, path, entity, id string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, nil), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, c.wrap(err, entity, id)
	}
	defer resp.Body.Close()

	if err := httpx.CheckResponse(resp); err != nil {
		return 0, c.wrap(err, entity, id)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, domain.ProviderFailed(c.domain, c.name, err)
	}
	return n, nil
}

// wrap maps errors onto the domain taxonomy: 404 becomes NotFound for the
// named entity, domain errors pass through, the rest are provider errors
func (c *client) wrap(err error, entity, id string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	var se *httpx.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound && entity != "" {
		return domain.NotFound(c.domain, entity, id)
	}
	return domain.ProviderFailed(c.domain, c.name, err)
}

// health checks credentials and quota via /rate_limit, which does not
// count against the quota
func (c *client) health(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	var out struct {
		Resources struct {
			Core struct {
				Limit     int   `json:"limit"`
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}
	if _, err := c.do(ctx, call{method: http.MethodGet, path: "rate_limit", out: &out, once: true}); err != nil {
		return domain.Unhealthy("%v", err)
	}
	core := out.Resources.Core
	if core.Limit > 0 && core.Remaining == 0 {
		return domain.Unhealthy("rate limit exhausted until %s", time.Unix(core.Reset, 0).UTC().Format(time.RFC3339))
	}
	status := domain.Healthy(fmt.Sprintf("rate limit %d/%d", core.Remaining, core.Limit))
	status.Latency = time.Since(start)
	return status
}

// nextLink extracts rel="next" from a Link header
func nextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(strings.TrimSpace(link), ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		for _, param := range parts[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
