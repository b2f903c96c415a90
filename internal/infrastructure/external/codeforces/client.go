// Package codeforces implements the Codeforces public API client.
package codeforces

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Codeforces API client.
type ClientConfig struct {
	// BaseURL is the Codeforces API base URL
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// PaceInterval is the minimum time between consecutive API calls
	PaceInterval time.Duration

	// MaxSubmissions bounds the user.status window per handle
	MaxSubmissions int

	// Pacer overrides the default interval pacer (used in tests)
	Pacer Pacer

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "https://codeforces.com/api",
		Timeout:        30 * time.Second,
		UserAgent:      "student-progress-hub/1.0",
		PaceInterval:   1 * time.Second,
		MaxSubmissions: 50,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Codeforces API client. It performs exactly one HTTP attempt
// per call and never retries; the sync layer decides what a failure means.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	pacer      Pacer
	mapper     *Mapper
}

// NewClient creates a new Codeforces API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxSubmissions <= 0 {
		config.MaxSubmissions = 50
	}

	pacer := config.Pacer
	if pacer == nil {
		pacer = NewIntervalPacer(config.PaceInterval)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
		pacer:  pacer,
		mapper: NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetUserInfo fetches identity and current/max rating for a handle.
func (c *Client) GetUserInfo(ctx context.Context, handle string) (*UserDTO, error) {
	params := url.Values{}
	params.Set("handles", handle)

	body, err := c.doRequest(ctx, "user.info", params)
	if err != nil {
		return nil, err
	}

	resp, err := decodeEnvelope[[]UserDTO](body)
	if err != nil {
		return nil, shared.WrapError("codeforces", "GetUserInfo", shared.ErrInvalidFormat, "parse user.info response", err)
	}
	if !resp.IsOK() {
		return nil, c.apiError("GetUserInfo", resp.Comment)
	}
	if len(resp.Result) == 0 {
		return nil, shared.NewDomainError("codeforces", "GetUserInfo", shared.ErrExternalService, "empty user.info result for "+handle)
	}

	return &resp.Result[0], nil
}

// GetRatingHistory fetches the full rated contest history for a handle.
func (c *Client) GetRatingHistory(ctx context.Context, handle string) ([]RatingChangeDTO, error) {
	params := url.Values{}
	params.Set("handle", handle)

	body, err := c.doRequest(ctx, "user.rating", params)
	if err != nil {
		return nil, err
	}

	resp, err := decodeEnvelope[[]RatingChangeDTO](body)
	if err != nil {
		return nil, shared.WrapError("codeforces", "GetRatingHistory", shared.ErrInvalidFormat, "parse user.rating response", err)
	}
	if !resp.IsOK() {
		return nil, c.apiError("GetRatingHistory", resp.Comment)
	}

	return resp.Result, nil
}

// GetRecentSubmissions fetches the most recent submissions for a handle.
func (c *Client) GetRecentSubmissions(ctx context.Context, handle string) ([]SubmissionDTO, error) {
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(c.config.MaxSubmissions))

	body, err := c.doRequest(ctx, "user.status", params)
	if err != nil {
		return nil, err
	}

	resp, err := decodeEnvelope[[]SubmissionDTO](body)
	if err != nil {
		return nil, shared.WrapError("codeforces", "GetRecentSubmissions", shared.ErrInvalidFormat, "parse user.status response", err)
	}
	if !resp.IsOK() {
		return nil, c.apiError("GetRecentSubmissions", resp.Comment)
	}

	return resp.Result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// FetchProfile fetches a complete profile snapshot for a handle: identity,
// then rating history, then recent submissions, in that order. Each call is
// preceded by a pacer wait. The first failing call aborts the rest.
func (c *Client) FetchProfile(ctx context.Context, handle profile.Handle) (*profile.Snapshot, error) {
	h := handle.String()

	user, err := c.GetUserInfo(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", h, err)
	}

	history, err := c.GetRatingHistory(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", h, err)
	}

	submissions, err := c.GetRecentSubmissions(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", h, err)
	}

	return c.mapper.SnapshotFromDTOs(handle, user, history, submissions), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP LAYER
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a single paced GET against one API method.
func (c *Client) doRequest(ctx context.Context, method string, params url.Values) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, shared.WrapError("codeforces", method, shared.ErrTransport, "pacer wait interrupted", err)
	}

	fullURL := c.config.BaseURL + "/" + method
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, shared.WrapError("codeforces", method, shared.ErrInternal, "create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug("codeforces api request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Never reached the service: DNS failure, refused connection, timeout.
		return nil, shared.WrapError("codeforces", method, shared.ErrTransport, "execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.WrapError("codeforces", method, shared.ErrTransport, "read response", err)
	}

	// Codeforces answers errors with a FAILED envelope, usually on 400.
	// Reaching this point means the service responded, so any rejection
	// below is an external service error, not a transport one.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, shared.NewDomainError("codeforces", method, shared.ErrExternalService,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	return body, nil
}

// apiError converts a FAILED envelope comment into a typed error.
func (c *Client) apiError(op, comment string) error {
	if comment == "" {
		comment = "request rejected without comment"
	}
	return shared.NewDomainError("codeforces", op, shared.ErrExternalService, comment)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
