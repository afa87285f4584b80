// Package proxy relays browser GraphQL requests to the upstream API so that
// session cookies are set on the front-end origin.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxRequestBytes  = 1 << 20
	maxResponseBytes = 4 << 20

	// RequestIDKey is the gin context key holding the request id
	RequestIDKey = "request_id"
)

// internalErrorBody is the only failure body the proxy ever returns
var internalErrorBody = []byte(`{"errors":[{"message":"Internal server error","extensions":{"code":"INTERNAL_SERVER_ERROR"}}]}`)

var errRedirect = errors.New("upstream answered with a redirect")

// Handler forwards POST /api/graphql to the upstream GraphQL endpoint
type Handler struct {
	upstreamURL string
	client      *http.Client
	log         zerolog.Logger
	metrics     *Metrics
	now         func() time.Time
}

// New creates a proxy handler. client must not follow redirects.
func New(upstreamURL string, client *http.Client, log zerolog.Logger, metrics *Metrics) *Handler {
	return &Handler{
		upstreamURL: upstreamURL,
		client:      client,
		log:         log,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Forward relays the request body and cookies upstream and returns the
// upstream JSON and status with rewritten Set-Cookie headers.
func (h *Handler) Forward(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.fail(c, fmt.Errorf("panic: %v", r))
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes))
	if err != nil {
		h.fail(c, fmt.Errorf("failed to read request body: %w", err))
		return
	}
	if !json.Valid(body) {
		h.fail(c, errors.New("request body is not valid JSON"))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.upstreamURL, bytes.NewReader(body))
	if err != nil {
		h.fail(c, fmt.Errorf("failed to create upstream request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie := c.GetHeader("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if id := c.GetString(RequestIDKey); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	h.metrics.observeUpstream(time.Since(start))
	if err != nil {
		h.fail(c, fmt.Errorf("upstream request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		h.fail(c, fmt.Errorf("%w: status %d", errRedirect, resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		h.fail(c, fmt.Errorf("failed to read upstream response: %w", err))
		return
	}
	if !json.Valid(data) {
		h.fail(c, fmt.Errorf("upstream returned invalid JSON (status %d)", resp.StatusCode))
		return
	}

	relayed, skipped := RelaySetCookies(c.Writer.Header(), resp.Header.Values("Set-Cookie"), h.now())
	h.metrics.observeCookies(relayed, skipped)
	if skipped > 0 {
		h.log.Debug().Int("skipped", skipped).Msg("Dropped malformed upstream cookies")
	}

	h.metrics.observeRequest("relayed")
	c.Data(resp.StatusCode, "application/json", data)
}

// Preflight answers CORS preflight requests without contacting the upstream
func (h *Handler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Cookie")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Status(http.StatusOK)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error().Err(err).Str(RequestIDKey, c.GetString(RequestIDKey)).Msg("GraphQL proxy error")
	h.metrics.observeRequest("failed")
	c.Writer.Header().Del("Set-Cookie")
	c.Data(http.StatusInternalServerError, "application/json", internalErrorBody)
	c.Abort()
}
