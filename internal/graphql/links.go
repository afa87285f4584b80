package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 4 << 20

// ErrorLink logs transport and GraphQL errors and invokes onAuthFailure when
// the backend reports that the session is missing or rejected.
func ErrorLink(log zerolog.Logger, onAuthFailure func()) Link {
	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) (*Response, error) {
			resp, err := next(ctx, op)
			if err != nil {
				log.Warn().Err(err).Str("operation", op.Name).Msg("GraphQL network error")
				if onAuthFailure != nil && IsAuthFailure(err) {
					onAuthFailure()
				}
				return resp, err
			}

			for _, ge := range resp.Errors {
				log.Warn().
					Str("operation", op.Name).
					Str("code", ge.Code()).
					Interface("path", ge.Path).
					Msg("GraphQL error: " + ge.Message)
			}
			if onAuthFailure != nil && HasAuthCode(resp.Errors) {
				onAuthFailure()
			}
			return resp, nil
		}
	}
}

// AuthLink attaches a bearer token read from token on every request.
// Nothing is attached when token returns "".
func AuthLink(token func() string) Link {
	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) (*Response, error) {
			if t := token(); t != "" {
				op.setHeader("Authorization", "Bearer "+t)
			}
			return next(ctx, op)
		}
	}
}

// CookieLink forwards an explicit Cookie header, used when the caller is a
// server acting on behalf of a browser request.
func CookieLink(cookieHeader string) Link {
	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) (*Response, error) {
			if cookieHeader != "" {
				op.setHeader("Cookie", cookieHeader)
			}
			return next(ctx, op)
		}
	}
}

// HTTPLink is the terminating handler that posts operations to endpoint
func HTTPLink(client *http.Client, endpoint string) Handler {
	return func(ctx context.Context, op *Operation) (*Response, error) {
		body, err := json.Marshal(request{
			Query:         op.Query,
			OperationName: op.Name,
			Variables:     op.Variables,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal operation %s: %w", op.Name, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, values := range op.Header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		httpResp, err := client.Do(req)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return nil, &TransportError{StatusCode: httpResp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return nil, &TransportError{
				StatusCode: httpResp.StatusCode,
				Err:        fmt.Errorf("unexpected status %s", http.StatusText(httpResp.StatusCode)),
			}
		}

		resp := &Response{}
		if err := json.Unmarshal(raw, resp); err != nil {
			return nil, &TransportError{StatusCode: httpResp.StatusCode, Err: fmt.Errorf("invalid GraphQL response: %w", err)}
		}
		resp.StatusCode = httpResp.StatusCode
		resp.SetCookies = httpResp.Header.Values("Set-Cookie")
		return resp, nil
	}
}
