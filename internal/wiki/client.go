// Package wiki fetches raw page markup from a MediaWiki API endpoint.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// MaxTitlesPerRequest is the API limit for anonymous title queries.
const MaxTitlesPerRequest = 50

const maxResponseBytes = 64 << 20

var (
	ErrTooManyTitles = errors.New("too many titles for one request")
	ErrAPI           = errors.New("wiki api error")
)

type Options struct {
	APIURL            string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

type Client struct {
	apiURL    *url.URL
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// Revision is the latest revision of one requested title. Missing pages have
// Missing set and no markup.
type Revision struct {
	Requested string
	Title     string
	Markup    string
	RevID     int64
	Timestamp time.Time
	Missing   bool
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", opts.APIURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		apiURL:    u,
		userAgent: opts.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, burst),
	}, nil
}

// PageURL is the human-facing address of title on the same wiki.
func (c *Client) PageURL(title string) string {
	u := *c.apiURL
	u.RawQuery = ""
	u.Path = strings.TrimSuffix(u.Path, "api.php") + "w/" + strings.ReplaceAll(title, " ", "_")
	return u.String()
}

// Revisions fetches the current markup of up to MaxTitlesPerRequest titles
// in one request. Results follow the API's order.
func (c *Client) Revisions(ctx context.Context, titles []string) ([]Revision, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	if len(titles) > MaxTitlesPerRequest {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyTitles, len(titles), MaxTitlesPerRequest)
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "ids|timestamp|content")
	params.Set("rvslots", "main")
	params.Set("formatversion", "2")
	params.Set("format", "json")
	params.Set("titles", strings.Join(titles, "|"))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return parseRevisions(body, titles)
}

// CategoryMembers lists the main-namespace pages in a category. Only the
// first page of results is returned.
func (c *Client) CategoryMembers(ctx context.Context, category string, limit int) ([]string, error) {
	if !strings.HasPrefix(strings.ToLower(category), "category:") {
		category = "Category:" + category
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", category)
	params.Set("cmnamespace", "0")
	params.Set("cmlimit", fmt.Sprint(limit))
	params.Set("formatversion", "2")
	params.Set("format", "json")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var titles []string
	gjson.GetBytes(body, "query.categorymembers").ForEach(func(_, m gjson.Result) bool {
		if t := m.Get("title").String(); t != "" {
			titles = append(titles, t)
		}
		return true
	})
	return titles, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := *c.apiURL
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", c.apiURL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http status %d", ErrAPI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not json", ErrAPI)
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() {
		return nil, fmt.Errorf("%w: %s: %s", ErrAPI, apiErr.Get("code").String(), apiErr.Get("info").String())
	}
	return body, nil
}

func parseRevisions(body []byte, requested []string) ([]Revision, error) {
	// the API reports title normalization as from -> to pairs
	origin := make(map[string]string, len(requested))
	for _, t := range requested {
		origin[t] = t
	}
	gjson.GetBytes(body, "query.normalized").ForEach(func(_, n gjson.Result) bool {
		origin[n.Get("to").String()] = n.Get("from").String()
		return true
	})

	pages := gjson.GetBytes(body, "query.pages")
	if !pages.Exists() {
		return nil, fmt.Errorf("%w: response has no pages", ErrAPI)
	}

	var out []Revision
	var parseErr error
	pages.ForEach(func(_, p gjson.Result) bool {
		title := p.Get("title").String()
		rev := Revision{Requested: origin[title], Title: title}
		if rev.Requested == "" {
			rev.Requested = title
		}
		if p.Get("missing").Bool() || p.Get("invalid").Bool() {
			rev.Missing = true
			out = append(out, rev)
			return true
		}

		latest := p.Get("revisions.0")
		rev.RevID = latest.Get("revid").Int()
		rev.Markup = latest.Get("slots.main.content").String()
		if ts := latest.Get("timestamp").String(); ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				parseErr = fmt.Errorf("parsing timestamp for %s: %w", title, err)
				return false
			}
			rev.Timestamp = t
		}
		out = append(out, rev)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

// Batches splits titles into consecutive groups of at most size.
func Batches(titles []string, size int) [][]string {
	if size <= 0 || size > MaxTitlesPerRequest {
		size = MaxTitlesPerRequest
	}
	var out [][]string
	for start := 0; start < len(titles); start += size {
		end := min(start+size, len(titles))
		out = append(out, titles[start:end])
	}
	return out
}
