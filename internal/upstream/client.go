package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tolls/internal/auth"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"golang.org/x/sync/singleflight"
)

const maxResponseBytes = 32 << 20

// Call identifies who is calling and against which backend.
type Call struct {
	Environment environment.Name
	Token       string
	RequestID   string
}

// Response is a successful upstream response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Options configures a Client.
type Options struct {
	Resolver   *environment.Resolver
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      RetryPolicy
	Logger     *log.Logger
	Now        func() time.Time
}

// Client talks to the Rydora API on behalf of a caller.
type Client struct {
	resolver *environment.Resolver
	http     *http.Client
	retry    RetryPolicy
	logger   *log.Logger
	now      func() time.Time
	timeout  time.Duration
	group    singleflight.Group
}

// New creates a client. A nil HTTPClient gets one with opts.Timeout (default 30s).
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	} else if httpClient.Timeout > 0 {
		timeout = httpClient.Timeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		resolver: opts.Resolver,
		http:     httpClient,
		retry:    opts.Retry,
		logger:   logger,
		now:      now,
		timeout:  timeout,
	}
}

// Do sends a request to path below the caller's environment base URL.
// Idempotent methods are retried on server and network errors; concurrent
// identical GETs share one upstream call. A caller whose ctx ends stops
// waiting without failing the others sharing that call.
func (c *Client) Do(ctx context.Context, call Call, method, path string, query url.Values, body []byte) (*Response, error) {
	target, err := c.url(call.Environment, path, query)
	if err != nil {
		return nil, err
	}

	send := func(ctx context.Context) (*Response, error) {
		if !idempotent(method) {
			return c.attempt(ctx, call, method, target, body)
		}
		var resp *Response
		err := c.retry.Do(ctx, func() error {
			r, err := c.attempt(ctx, call, method, target, body)
			if err != nil {
				c.logger.WithFields(log.Fields{
					"request_id": call.RequestID,
					"method":     method,
					"path":       path,
				}).WithError(err).Debug("Upstream attempt failed")
				return err
			}
			resp = r
			return nil
		})
		return resp, err
	}

	if method != http.MethodGet {
		return send(ctx)
	}

	key := strings.Join([]string{string(call.Environment), auth.Fingerprint(call.Token), target}, "|")
	ch := c.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedBudget())
		defer cancel()
		return send(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Response), nil
	}
}

// sharedBudget bounds a shared GET: every attempt may take the full timeout
// plus the longest backoff between attempts.
func (c *Client) sharedBudget() time.Duration {
	attempts := max(c.retry.MaxAttempts, 1)
	return time.Duration(attempts)*c.timeout + time.Duration(attempts-1)*c.retry.MaxDelay
}

// GetJSON fetches path and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, call Call, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, call, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return decodeError(path, err)
	}
	return nil
}

// SendJSON encodes in as the request body and decodes the response into out
// when out is non-nil and the response has a body.
func (c *Client) SendJSON(ctx context.Context, call Call, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	resp, err := c.Do(ctx, call, method, path, nil, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return decodeError(path, err)
	}
	return nil
}

// GetList fetches a collection. The upstream returns either a bare JSON array
// or an envelope with the rows under data, items or results.
func GetList[T any](ctx context.Context, c *Client, call Call, path string, query url.Values) ([]T, error) {
	resp, err := c.Do(ctx, call, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeList[T](resp.Body)
	if err != nil {
		return nil, decodeError(path, err)
	}
	return rows, nil
}

// DecodeList decodes a bare array or an enveloped list.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	rows := []T{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rows, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	for _, key := range []string{"data", "items", "results", "$values"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return rows, nil
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	return nil, errors.New("response is neither a list nor a list envelope")
}

// decodeError reports a response body the gateway cannot read as a fault of
// the upstream service.
func decodeError(path string, err error) error {
	return &APIError{Service: ServiceRydora, Kind: KindServer, Message: fmt.Sprintf("malformed %s response", path), Err: err}
}

func (c *Client) url(env environment.Name, path string, query url.Values) (string, error) {
	if c.resolver == nil {
		return "", errors.New("upstream client has no environment resolver")
	}
	base, err := c.resolver.BaseURL(env)
	if err != nil {
		return "", err
	}
	u := base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) attempt(ctx context.Context, call Call, method, target string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(environment.Header, string(call.Environment))
	if call.Token != "" {
		req.Header.Set("Authorization", "Bearer "+call.Token)
	}
	if call.RequestID != "" {
		req.Header.Set("X-Request-ID", call.RequestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &APIError{Service: ServiceRydora, Kind: KindNetwork, Message: "upstream unreachable", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &APIError{Service: ServiceRydora, Kind: KindNetwork, Message: "failed to read upstream response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, NewStatusError(ServiceRydora, resp.StatusCode, resp.Header, data, c.now())
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: data}, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}
