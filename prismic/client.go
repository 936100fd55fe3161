// Package prismic is a small read-only client for the Prismic REST API v2.
//
// A Client is built from an explicit Config and answers three kinds of
// queries: documents of a type (paginated), a single document by uid or id,
// and the next page behind an opaque next_page cursor. A preview ref can be
// pinned on a copy of the client, after which every query on that copy
// resolves draft content instead of the published master ref.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRefTTL  = 5 * time.Second
	searchPath     = "/documents/search"
	maxBodySize    = 8 << 20
	userAgent      = "spacetraveling-prismic/1"
)

// Config holds everything needed to talk to one repository.
type Config struct {
	Endpoint    string // API root, e.g. https://my-repo.cdn.prismic.io/api/v2
	AccessToken string
	HTTPClient  *http.Client
	RefTTL      time.Duration // how long the master ref is reused (default 5s)
}

// QueryOptions controls a FetchByType request.
type QueryOptions struct {
	PageSize  int
	Page      int
	Orderings string // raw Prismic orderings, e.g. "[document.first_publication_date desc]"
	Lang      string
}

// Client queries a Prismic repository. It is safe for concurrent use.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
	previewRef  string
	master      *refCache
}

type refCache struct {
	mu      sync.Mutex
	ref     string
	fetched time.Time
	ttl     time.Duration
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if raw == "" {
		return nil, errors.New("prismic: endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q must be an absolute http(s) URL", raw)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	ttl := cfg.RefTTL
	if ttl <= 0 {
		ttl = defaultRefTTL
	}
	return &Client{
		endpoint:    u,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		http:        hc,
		master:      &refCache{ttl: ttl},
	}, nil
}

// WithPreview returns a copy of c pinned to the given preview ref.
// An empty ref returns c unchanged.
func (c *Client) WithPreview(ref string) *Client {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return c
	}
	cp := *c
	cp.previewRef = ref
	return &cp
}

// Preview reports whether the client resolves a preview ref.
func (c *Client) Preview() bool { return c.previewRef != "" }

// Repository returns the repository name derived from the endpoint host.
func (c *Client) Repository() string { return RepositoryName(c.endpoint.String()) }

// ResolveRef returns the ref queries run against: the pinned preview ref when
// present, otherwise the repository's current master ref.
func (c *Client) ResolveRef(ctx context.Context) (string, error) {
	if c.previewRef != "" {
		return c.previewRef, nil
	}
	m := c.master
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ref != "" && time.Since(m.fetched) < m.ttl {
		return m.ref, nil
	}

	q := url.Values{}
	c.authorize(q)
	u := *c.endpoint
	u.RawQuery = q.Encode()

	var root apiRoot
	if err := c.getJSON(ctx, u.String(), "api root", &root); err != nil {
		return "", err
	}
	for _, r := range root.Refs {
		if r.IsMasterRef && r.Ref != "" {
			m.ref = r.Ref
			m.fetched = time.Now()
			return r.Ref, nil
		}
	}
	return "", &SchemaError{What: "api root without a master ref"}
}

// FetchByType returns one page of documents of the given custom type.
func (c *Client) FetchByType(ctx context.Context, docType string, opts QueryOptions) (Response, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf(`[[at(document.type, %q)]]`, docType))
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		q.Set("orderings", opts.Orderings)
	}
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	return c.search(ctx, q)
}

// FetchByUID returns the document of docType whose uid matches.
func (c *Client) FetchByUID(ctx context.Context, docType, uid string) (Document, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf(`[[at(my.%s.uid, %q)]]`, docType, uid))
	q.Set("pageSize", "1")
	resp, err := c.search(ctx, q)
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, &NotFoundError{Type: docType, Key: uid}
	}
	return resp.Results[0], nil
}

// FetchByID returns the document with the given id.
func (c *Client) FetchByID(ctx context.Context, id string) (Document, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf(`[[at(document.id, %q)]]`, id))
	q.Set("pageSize", "1")
	resp, err := c.search(ctx, q)
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, &NotFoundError{Key: id}
	}
	return resp.Results[0], nil
}

// FetchPage follows a next_page cursor previously returned by this repository.
// The cursor keeps its own ref so a listing stays on one content release,
// unless the client is pinned to a preview ref.
func (c *Client) FetchPage(ctx context.Context, cursor string) (Response, error) {
	u, err := c.checkCursor(cursor)
	if err != nil {
		return Response{}, err
	}
	q := u.Query()
	switch {
	case c.previewRef != "":
		q.Set("ref", c.previewRef)
	case q.Get("ref") == "":
		ref, err := c.ResolveRef(ctx)
		if err != nil {
			return Response{}, err
		}
		q.Set("ref", ref)
	}
	c.authorize(q)
	u.RawQuery = q.Encode()
	return c.decodeSearch(ctx, u.String())
}

func (c *Client) checkCursor(cursor string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(cursor))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse cursor: %w", err)
	}
	if !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, fmt.Errorf("prismic: cursor host %q does not belong to %q", u.Host, c.endpoint.Host)
	}
	if u.Scheme != c.endpoint.Scheme {
		return nil, fmt.Errorf("prismic: cursor scheme %q does not match endpoint", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, searchPath) {
		return nil, fmt.Errorf("prismic: cursor %q is not a search URL", u.Path)
	}
	return u, nil
}

func (c *Client) search(ctx context.Context, q url.Values) (Response, error) {
	ref, err := c.ResolveRef(ctx)
	if err != nil {
		return Response{}, err
	}
	q.Set("ref", ref)
	c.authorize(q)
	u := *c.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + searchPath
	u.RawQuery = q.Encode()
	return c.decodeSearch(ctx, u.String())
}

func (c *Client) decodeSearch(ctx context.Context, rawURL string) (Response, error) {
	var payload struct {
		Response
		Results *[]Document `json:"results"`
	}
	if err := c.getJSON(ctx, rawURL, "search response", &payload); err != nil {
		return Response{}, err
	}
	if payload.Results == nil {
		return Response{}, &SchemaError{What: "search response without results"}
	}
	resp := payload.Response
	resp.Results = *payload.Results
	return resp, nil
}

func (c *Client) authorize(q url.Values) {
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL, what string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TransportError{URL: redact(rawURL), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: redact(rawURL), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return &TransportError{URL: redact(rawURL), StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(v); err != nil {
		return &SchemaError{What: what, Err: err}
	}
	return nil
}

// redact drops the access token from URLs that end up in error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
