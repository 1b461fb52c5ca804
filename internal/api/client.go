// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paper-reader/internal/httputil"
	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paper-reader/0.1"
)

// Client talks to the entity API over HTTP.
type Client struct {
	HTTP       *http.Client
	BaseURL    string
	UserAgent  string
	Token      string
	MaxRetries int
	Log        *logger.Logger
}

// NewClient builds a client from backend settings.
func NewClient(cfg types.BackendConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(cfg.URL, "/"),
		UserAgent:  ua,
		Token:      cfg.Token,
		MaxRetries: cfg.MaxRetries,
		Log:        logger.OrNop(log).Component("api"),
	}
}

func (c *Client) entitiesURL(paperID string) string {
	return fmt.Sprintf("%s/papers/%s/entities", c.BaseURL, url.PathEscape(paperID))
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, reqURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries, c.Log)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()
	c.Log.LogRequest(method, req.URL.Path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, reqURL, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var eb ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Error != "" {
			return fmt.Errorf("%s %s: HTTP %d: %s: %w", method, reqURL, resp.StatusCode, eb.Error, ErrRequestFailed)
		}
		return fmt.Errorf("%s %s: HTTP %d: %w", method, reqURL, resp.StatusCode, ErrRequestFailed)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", reqURL, err)
	}
	return nil
}

// GetEntities fetches every entity of a paper.
func (c *Client) GetEntities(ctx context.Context, paperID string) ([]types.Entity, error) {
	var env Envelope[[]types.Entity]
	if err := c.do(ctx, http.MethodGet, c.entitiesURL(paperID), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// PostEntity creates an entity.
func (c *Client) PostEntity(ctx context.Context, paperID string, data types.EntityCreateData) (types.Entity, error) {
	var env Envelope[types.Entity]
	if err := c.do(ctx, http.MethodPost, c.entitiesURL(paperID), Envelope[types.EntityCreateData]{Data: data}, &env); err != nil {
		return types.Entity{}, err
	}
	if env.Data.ID == "" {
		return types.Entity{}, fmt.Errorf("created entity has no id: %w", ErrRequestFailed)
	}
	return env.Data, nil
}

// PatchEntity updates the entity named by data.ID.
func (c *Client) PatchEntity(ctx context.Context, paperID string, data types.EntityUpdateData) error {
	reqURL := c.entitiesURL(paperID) + "/" + url.PathEscape(data.ID)
	return c.do(ctx, http.MethodPatch, reqURL, Envelope[types.EntityUpdateData]{Data: data}, nil)
}

// DeleteEntity removes an entity.
func (c *Client) DeleteEntity(ctx context.Context, paperID, id string) error {
	reqURL := c.entitiesURL(paperID) + "/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, reqURL, nil, nil)
}

// GetPapers fetches paper metadata for Semantic Scholar ids.
func (c *Client) GetPapers(ctx context.Context, s2IDs []string) ([]types.Paper, error) {
	if len(s2IDs) == 0 {
		return nil, nil
	}
	params := url.Values{"id": {strings.Join(s2IDs, ",")}}
	var env Envelope[[]types.Paper]
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/papers?"+params.Encode(), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}
