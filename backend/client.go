package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	RouteLogin        = "/auth/login"
	RouteRefreshToken = "/auth/refresh-token"

	maxResponseBytes = 10 << 20
)

var _ Authenticator = (*Client)(nil)

// Client is the JSON-over-HTTP backend. It never retries: a rate limit wait
// delays a call, an open breaker fails it fast. Login and refresh skip the
// breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outbound calls at rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker opens after threshold consecutive network or server
// failures and stays open for cooldown. Auth and validation errors do not count.
func WithCircuitBreaker(threshold uint32, cooldown time.Duration) ClientOption {
	return func(c *Client) {
		if threshold == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "story-api",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !(errs.Is(err, errs.ErrNetwork) || errs.Is(err, errs.ErrServer))
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{baseURL: baseURL}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	return c.tokenCall(ctx, RouteLogin, req)
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.tokenCall(ctx, RouteRefreshToken, map[string]string{"refreshToken": refreshToken})
}

func (c *Client) tokenCall(ctx context.Context, path string, payload any) (*TokenPair, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("[Client %s] encode: %w", path, err)
	}
	resp, err := c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, "", nil)
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := json.Unmarshal(resp.Body, &pair); err != nil {
		return nil, fmt.Errorf("[Client %s] decode: %w: %w", path, errs.ErrServer, err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("[Client %s] %w: response has no accessToken", path, errs.ErrServer)
	}
	return &pair, nil
}

// Call sends req with accessToken as a bearer credential. A 401 comes back as
// an error matching errs.ErrAuthFailure.
func (c *Client) Call(ctx context.Context, req Request, accessToken string) (*Response, error) {
	return c.call(ctx, req, accessToken, c.breaker)
}

func (c *Client) call(ctx context.Context, req Request, accessToken string, breaker *gobreaker.CircuitBreaker) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %w", errs.ErrNetwork, err)
		}
	}
	if breaker == nil {
		return c.send(ctx, req, accessToken)
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, req, accessToken)
	})
	if errs.Is(err, gobreaker.ErrOpenState) || errs.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s %s: %w", errs.ErrNetwork, req.Method, req.Path, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

func (c *Client) send(ctx context.Context, req Request, accessToken string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("[Client send] build request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", errs.ErrNetwork, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", errs.ErrNetwork, req.Method, req.Path, err)
	}

	if kind := errs.KindForStatus(httpResp.StatusCode); kind != nil {
		log.Debug().Str("method", req.Method).Str("path", req.Path).Int("status", httpResp.StatusCode).Msg("backend call failed")
		return nil, &errs.HTTPError{StatusCode: httpResp.StatusCode, Body: respBody, Kind: kind}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}
