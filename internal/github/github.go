// Package github is the slice of the GitHub Releases API binge consumes:
// resolve the latest eligible release of a repository and stream an asset's
// bytes. Errors the engine must act on distinctly (missing repo, rate limit,
// bad token) are surfaced as sentinel or typed errors.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// perPage is the number of releases fetched per API page.
	perPage = 30

	// maxPages bounds pagination; 90 releases is more than enough history to
	// find the latest eligible one.
	maxPages = 3

	// maxJSONBytes caps JSON response bodies to keep a misbehaving server
	// from ballooning memory.
	maxJSONBytes = 10 << 20

	// apiTimeout applies to metadata requests only; asset downloads stream
	// for as long as they need under the caller's context.
	apiTimeout = 30 * time.Second
)

var (
	// ErrNotFound is returned when the repository does not exist or has no
	// eligible release.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when GitHub rejects the configured token.
	ErrUnauthorized = errors.New("unauthorized: GitHub rejected the token")
)

// RateLimitError is returned when the GitHub API rate limit is exhausted.
// It is surfaced to the user as-is, never silently retried.
type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (limit %d, resets at %s); set GITHUB_TOKEN to raise it",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Release is one GitHub release: its tag and downloadable assets.
type Release struct {
	Tag        string
	Prerelease bool
	Draft      bool
	Assets     []Asset
}

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
	Size        int64
}

// githubRelease and githubAsset are the JSON wire shapes.
type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Prerelease bool          `json:"prerelease"`
	Draft      bool          `json:"draft"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Client queries the GitHub Releases API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

// Option configures a Client during construction.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithToken sets a token for authenticated requests. Anonymous requests
// work but are rate limited far more aggressively (60/hour vs 5000/hour).
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a Client talking to api.github.com.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.github.com",
		userAgent:  "binge",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease resolves the most recent eligible release of owner/repo.
// Drafts are always skipped; prereleases are skipped unless requested.
// Eligible releases are ordered by semantic version when their tags parse
// as one, falling back to the API's reverse-chronological order otherwise.
// Returns ErrNotFound when the repository is missing or nothing is eligible.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string, includePrerelease bool) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.baseURL, owner, repo, perPage)

	var eligible []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := c.doRequest(ctx, pageURL, "application/vnd.github+json")
		if err != nil {
			return nil, fmt.Errorf("listing releases for %s/%s: %w", owner, repo, err)
		}

		if err := classifyStatus(resp); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("listing releases for %s/%s: %w", owner, repo, err)
		}

		var raw []githubRelease
		err = json.NewDecoder(io.LimitReader(resp.Body, maxJSONBytes)).Decode(&raw)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("listing releases for %s/%s: decoding response: %w", owner, repo, err)
		}

		for _, gr := range raw {
			if gr.Draft || (gr.Prerelease && !includePrerelease) {
				continue
			}
			eligible = append(eligible, toRelease(gr))
		}

		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("%s/%s has no eligible release: %w", owner, repo, ErrNotFound)
	}

	sortBySemverDesc(eligible)
	return &eligible[0], nil
}

// OpenAsset opens a streaming reader over the asset's raw bytes. The caller
// owns the returned ReadCloser.
func (c *Client) OpenAsset(ctx context.Context, asset Asset) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, asset.DownloadURL, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", asset.Name, err)
	}

	if err := classifyStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s from %s: %w", asset.Name, redactURL(asset.DownloadURL), err)
	}

	return resp.Body, nil
}

// doRequest executes a GET with the common GitHub headers. The token is only
// attached when the request targets a known GitHub host, so a redirect to a
// third-party CDN never sees it.
func (c *Client) doRequest(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// classifyStatus maps a response to the error taxonomy the engine handles:
// ErrNotFound, ErrUnauthorized, *RateLimitError, or a generic status error.
// A nil return means the response is usable.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden, http.StatusTooManyRequests:
		if err := rateLimitFrom(resp); err != nil {
			return err
		}
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

// rateLimitFrom builds a *RateLimitError from the X-RateLimit-* headers, or
// returns nil when the response was not rate limited.
func rateLimitFrom(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	// Companion headers are best-effort; zero values still make a usable
	// message.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

func toRelease(gr githubRelease) Release {
	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset{
			Name:        ga.Name,
			DownloadURL: ga.BrowserDownloadURL,
			Size:        ga.Size,
		})
	}
	return Release{
		Tag:        gr.TagName,
		Prerelease: gr.Prerelease,
		Draft:      gr.Draft,
		Assets:     assets,
	}
}

// parseLinkHeader extracts the rel="next" URL from a GitHub Link header.
// Returns "" when there is no next page.
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// sortBySemverDesc orders releases newest-first by tag. Tags are compared as
// semantic versions (a missing "v" prefix is tolerated); non-semver tags
// compare as equal and keep their API order, which GitHub already returns
// reverse-chronologically.
func sortBySemverDesc(releases []Release) {
	slices.SortStableFunc(releases, func(a, b Release) int {
		return semver.Compare(semverKey(b.Tag), semverKey(a.Tag))
	})
}

func semverKey(tag string) string {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	if !semver.IsValid(tag) {
		return ""
	}
	return tag
}

// isGitHubHost reports whether reqURL targets the configured API host, or
// github.com / objects.githubusercontent.com when the base is production
// (the hosts release asset downloads bounce through).
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	if strings.EqualFold(base.Host, "api.github.com") {
		return strings.EqualFold(reqURL.Host, "github.com") ||
			strings.EqualFold(reqURL.Host, "objects.githubusercontent.com")
	}
	return false
}

// redactURL strips query and fragment for error messages; download URLs can
// carry short-lived signing parameters.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
