// Package scoringapi is a typed client for the assessment scoring backend.
package scoringapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// Endpoint labels used in logs and metrics.
const (
	endpointStart    = "start"
	endpointComplete = "complete"
	endpointPublic   = "public"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10

// Client calls the scoring backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// New creates a client for baseURL, e.g. "https://api.bethegolf.com".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{base: u, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("scoringapi")
	}
	return c, nil
}

// Start creates an assessment session and returns its frames.
func (c *Client) Start(ctx context.Context, locale string, d model.Demographics) (model.StartResult, error) {
	var out model.StartResult
	err := c.do(ctx, endpointStart, http.MethodPost, []string{"assessments", "start"}, locale, d, &out)
	return out, err
}

type completeRequest struct {
	Responses model.ResponseSet `json:"responses"`
}

// Complete submits all responses for a session.
func (c *Client) Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error) {
	if rs == nil {
		rs = model.ResponseSet{}
	}
	var out model.CompletionResult
	path := []string{"assessments", sessionID, "complete"}
	err := c.do(ctx, endpointComplete, http.MethodPost, path, locale, completeRequest{Responses: rs}, &out)
	return out, err
}

// PublicResult fetches a completed assessment by its public token.
func (c *Client) PublicResult(ctx context.Context, token, locale string) (model.PublicResult, error) {
	var out model.PublicResult
	path := []string{"assessments", "public", token}
	err := c.do(ctx, endpointPublic, http.MethodGet, path, locale, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, endpoint, method string, path []string, locale string, in, out any) error {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, locale, in)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	resp, err := c.http.Do(req)
	metrics.RecordAPILatency(endpoint, metrics.Since(start))
	if err != nil {
		metrics.RecordAPIError(endpoint, string(KindNetwork))
		c.logger.Warn(ctx, "scoring api unreachable", logger.String("endpoint", endpoint), logger.Error(err))
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Kind: KindServer, Status: resp.StatusCode, Message: failureMessage(resp)}
		metrics.RecordAPIError(endpoint, string(KindServer))
		c.logger.Warn(ctx, "scoring api rejected request",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("message", apiErr.Message))
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordAPIError(endpoint, string(KindDecode))
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: "decode " + endpoint + " response: " + err.Error(), Err: err}
	}

	c.logger.Debug(ctx, "scoring api call", logger.String("endpoint", endpoint), logger.Duration("elapsed", time.Since(start)))
	return nil
}

// newRequest joins path segments onto the base URL, escaping each one.
func (c *Client) newRequest(ctx context.Context, method string, path []string, locale string, in any) (*http.Request, error) {
	escaped := make([]string, len(path))
	for i, seg := range path {
		escaped[i] = url.PathEscape(seg)
	}
	u := *c.base
	u.Path = c.base.Path + "/" + strings.Join(path, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	if locale != "" {
		u.RawQuery = url.Values{"locale": {locale}}.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// failureMessage returns the body's message field or the status fallback.
func failureMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return statusMessage(resp.StatusCode)
}
