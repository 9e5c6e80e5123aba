package easytemplate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// request describes one outbound call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// authorization overrides the session bearer token.
	authorization string
}

// call runs a business operation: validate the session, then send through
// the retry policy.
func (c *Client) call(ctx context.Context, req request) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "easytemplate "+req.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.method),
		attribute.String("url.path", req.path),
	)

	if err := c.EnsureValid(ctx); err != nil {
		err = withOp(req.op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "session")
		return nil, err
	}

	raw, err := withRetry(ctx, c, req.op, func(ctx context.Context) (json.RawMessage, error) {
		return c.send(ctx, req)
	})
	if err != nil {
		err = withOp(req.op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		return nil, err
	}
	return raw, nil
}

// send performs a single attempt. The bearer token is read per attempt so
// a retry after a refresh carries the new token.
func (c *Client) send(ctx context.Context, req request) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindRateLimited, Err: err}
		}
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Kind: KindRemote, Detail: "encoding request: " + err.Error(), Err: ErrInvalidRequest}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, &Error{Kind: KindRemote, Detail: "creating request: " + err.Error(), Err: err}
	}

	auth := req.authorization
	if auth == "" {
		auth = "Bearer " + c.Session().AccessToken
	}
	httpReq.Header.Set("Authorization", auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observer.APICall(req.op, 0, time.Since(start))
		return nil, &Error{Kind: KindRemote, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.observer.APICall(req.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &Error{
			Kind:       KindRemote,
			StatusCode: resp.StatusCode,
			Detail:     "reading response: " + err.Error(),
			Err:        err,
		}
	}

	c.logger.Debug("api call",
		slog.String("op", req.op),
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if len(bytes.TrimSpace(data)) == 0 {
			return json.RawMessage("{}"), nil
		}
		return json.RawMessage(data), nil
	}

	kind, sentinel := classifyStatus(resp.StatusCode)
	etErr := &Error{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Detail:     failureMessage(resp.StatusCode, data),
		Err:        sentinel,
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		etErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.nowFunc())
	}
	return nil, etErr
}

// failureMessage extracts the message from an error body, falling back to a
// status-only text when the body is absent or not understood.
func failureMessage(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fmt.Sprintf("HTTP %d, no body", status)
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. It returns 0 when the header is absent or unusable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
