package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carepulse-dev/carepulse/internal/credentials"
)

const (
	defaultCacheSize = 128
	defaultTimeout   = 15 * time.Second

	// ProxyPath is where the same-origin GraphQL proxy is mounted
	ProxyPath = "/api/graphql"
)

// Client executes GraphQL operations through a link chain
type Client struct {
	handler       Handler
	cache         *lru.Cache // nil disables caching entirely
	defaultPolicy FetchPolicy
	errorPolicy   ErrorPolicy
	log           zerolog.Logger
}

// ServerOptions configures a client that runs on behalf of one browser request
type ServerOptions struct {
	// Endpoint is the upstream GraphQL URL
	Endpoint string
	// CookieHeader is the incoming request's cookies, forwarded verbatim
	CookieHeader string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// NewServerClient builds a cache-less client that talks straight to the
// upstream. Both data and errors are returned to the caller.
func NewServerClient(opts ServerOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(nil, defaultTimeout)
	}

	handler := Chain(
		ErrorLink(opts.Logger, nil),
		CookieLink(opts.CookieHeader),
	)(HTTPLink(httpClient, opts.Endpoint))

	return &Client{
		handler:       handler,
		defaultPolicy: NoCache,
		errorPolicy:   ErrorPolicyAll,
		log:           opts.Logger,
	}
}

// BrowserOptions configures a long-lived client acting as the browser
type BrowserOptions struct {
	// SiteURL is the front-end origin; requests go to SiteURL + ProxyPath
	SiteURL string
	Mode    credentials.Mode
	// Jar carries the session cookies in cookie mode
	Jar http.CookieJar
	// Token supplies the bearer token in bearer mode
	Token func() string
	// OnAuthFailure runs when the backend rejects the session
	OnAuthFailure func()
	CacheSize     int
	ErrorPolicy   ErrorPolicy
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// NewBrowserClient builds a cached client that targets the same-origin proxy
func NewBrowserClient(opts BrowserOptions) (*Client, error) {
	endpoint, err := proxyEndpoint(opts.SiteURL)
	if err != nil {
		return nil, err
	}

	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := NewHTTPClient(nil, timeout)

	var auth Link
	switch opts.Mode {
	case credentials.ModeBearer:
		if opts.Token == nil {
			return nil, errors.New("bearer mode requires a token source")
		}
		auth = AuthLink(opts.Token)
	default:
		httpClient.Jar = opts.Jar
	}

	handler := Chain(
		ErrorLink(opts.Logger, opts.OnAuthFailure),
		auth,
	)(HTTPLink(httpClient, endpoint))

	return &Client{
		handler:       handler,
		cache:         cache,
		defaultPolicy: CacheAndNetwork,
		errorPolicy:   opts.ErrorPolicy,
		log:           opts.Logger,
	}, nil
}

// NewHTTPClient returns a traced HTTP client that never follows redirects
func NewHTTPClient(base http.RoundTripper, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(base),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func proxyEndpoint(siteURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(siteURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid site URL %q", siteURL)
	}
	return u.String() + ProxyPath, nil
}

// Query runs a query under its fetch policy and decodes data into out
func (c *Client) Query(ctx context.Context, op *Operation, out any) (*Response, error) {
	op.Kind = KindQuery
	return c.execute(ctx, op, out)
}

// Mutate runs a mutation; mutations never touch the cache
func (c *Client) Mutate(ctx context.Context, op *Operation, out any) (*Response, error) {
	op.Kind = KindMutation
	return c.execute(ctx, op, out)
}

// ClearStore drops every cached query result
func (c *Client) ClearStore() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func (c *Client) execute(ctx context.Context, op *Operation, out any) (*Response, error) {
	policy := op.Policy
	if policy == "" {
		policy = c.defaultPolicy
	}
	if c.cache == nil || op.Kind == KindMutation {
		policy = NoCache
	}

	key := cacheKey(op)
	if policy == CacheFirst {
		if cached, ok := c.cache.Get(key); ok {
			return c.finish(cached.(*Response), out)
		}
	}

	resp, err := c.handler(ctx, op)
	if err != nil {
		if policy == CacheAndNetwork && IsTransportError(err) {
			if cached, ok := c.cache.Get(key); ok {
				c.log.Debug().Str("operation", op.Name).Msg("Serving cached result after network failure")
				return c.finish(cached.(*Response), out)
			}
		}
		return nil, err
	}

	if policy != NoCache && len(resp.Errors) == 0 && resp.HasData() {
		c.cache.Add(key, &Response{Data: resp.Data, StatusCode: resp.StatusCode})
	}
	return c.finish(resp, out)
}

func (c *Client) finish(resp *Response, out any) (*Response, error) {
	if err := resp.Decode(out); err != nil {
		return resp, fmt.Errorf("failed to decode GraphQL data: %w", err)
	}
	if c.errorPolicy == ErrorPolicyNone && len(resp.Errors) > 0 {
		return resp, &ResponseError{Errors: resp.Errors}
	}
	return resp, nil
}

func cacheKey(op *Operation) string {
	vars, _ := json.Marshal(op.Variables)
	return op.Name + "\x00" + op.Query + "\x00" + string(vars)
}
