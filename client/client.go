// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/reconciler"
)

const (
	DefaultReconnectDelay    = 500 * time.Millisecond
	DefaultReconnectAttempts = 3
	defaultHTTPTimeout       = 10 * time.Second
)

type Options struct {
	// APIURL is the server base URL, e.g. http://localhost:3318.
	APIURL string
	// SocketURL is the push channel base URL. Defaults to APIURL with the
	// scheme switched to ws or wss.
	SocketURL string

	HTTPClient *http.Client
	State      LocalState
	Logger     *slog.Logger

	ThrottleInterval  time.Duration
	ReconnectDelay    time.Duration
	ReconnectAttempts int
}

// Client talks to a livepoll server on behalf of one participant.
type Client struct {
	apiURL    string
	socketURL string
	http      *http.Client
	state     LocalState
	logger    *slog.Logger

	throttle          time.Duration
	reconnectDelay    time.Duration
	reconnectAttempts int
}

func New(opts Options) (*Client, error) {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		return nil, errors.New("API URL is required")
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	socketURL := strings.TrimRight(opts.SocketURL, "/")
	if socketURL == "" {
		socketURL = apiURL
	}
	switch {
	case strings.HasPrefix(socketURL, "https://"):
		socketURL = "wss://" + strings.TrimPrefix(socketURL, "https://")
	case strings.HasPrefix(socketURL, "http://"):
		socketURL = "ws://" + strings.TrimPrefix(socketURL, "http://")
	}

	c := &Client{
		apiURL:            apiURL,
		socketURL:         socketURL,
		http:              opts.HTTPClient,
		state:             opts.State,
		logger:            opts.Logger,
		throttle:          opts.ThrottleInterval,
		reconnectDelay:    opts.ReconnectDelay,
		reconnectAttempts: opts.ReconnectAttempts,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.state == nil {
		c.state = NewMemoryState()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.throttle <= 0 {
		c.throttle = reconciler.DefaultInterval
	}
	if c.reconnectDelay <= 0 {
		c.reconnectDelay = DefaultReconnectDelay
	}
	if c.reconnectAttempts <= 0 {
		c.reconnectAttempts = DefaultReconnectAttempts
	}
	return c, nil
}

// Token returns the participant token, generating and persisting one on
// first use.
func (c *Client) Token() (string, error) {
	if token, ok := c.state.Token(); ok {
		return token, nil
	}
	token, err := auth.GenerateParticipantToken()
	if err != nil {
		return "", err
	}
	if err := c.state.SetToken(token); err != nil {
		return "", fmt.Errorf("failed to persist participant token: %w", err)
	}
	return token, nil
}

// CreatePoll creates a poll and returns its initial snapshot.
func (c *Client) CreatePoll(ctx context.Context, question string, options []string) (models.Snapshot, error) {
	var resp models.CreatePollResponse
	req := models.CreatePollRequest{Question: question, Options: options}
	if err := c.do(ctx, http.MethodPost, "/api/polls", req, nil, &resp); err != nil {
		return models.Snapshot{}, err
	}
	return resp.Poll, nil
}

// GetPoll fetches a snapshot and whether this participant has voted.
func (c *Client) GetPoll(ctx context.Context, pollID string) (models.Snapshot, bool, error) {
	token, err := c.Token()
	if err != nil {
		return models.Snapshot{}, false, err
	}

	var resp models.GetPollResponse
	headers := map[string]string{middleware.ParticipantTokenHeader: token}
	if err := c.do(ctx, http.MethodGet, "/api/polls/"+url.PathEscape(pollID), nil, headers, &resp); err != nil {
		return models.Snapshot{}, false, err
	}
	return resp.Poll, resp.HasVoted, nil
}

// Vote casts this participant's vote and returns the authoritative snapshot.
func (c *Client) Vote(ctx context.Context, pollID string, option int) (models.Snapshot, error) {
	token, err := c.Token()
	if err != nil {
		return models.Snapshot{}, err
	}

	var resp models.VoteResponse
	req := models.VoteRequest{OptionIndex: option, ParticipantToken: token}
	if err := c.do(ctx, http.MethodPost, "/api/polls/"+url.PathEscape(pollID)+"/vote", req, nil, &resp); err != nil {
		return models.Snapshot{}, err
	}
	return resp.Poll, nil
}

// do performs one JSON request. Error bodies are mapped back to the domain
// error named by their code; transport failures count as transient.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrTransientUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			errResp.Message = resp.Status
		}
		if sentinel, ok := models.ErrorForCode(errResp.Code); ok {
			return sentinel
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", models.ErrTransientUnavailable, resp.Status)
		}
		return fmt.Errorf("request failed with %s: %s", resp.Status, errResp.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
