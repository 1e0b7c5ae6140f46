// Package api is the HTTP client for the marketplace backend. It covers the
// chat endpoint consumed by the dispatch engine and the enrollment
// collaborators consumed by session bootstrap.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultTimeout = 60 * time.Second

// Client talks to the marketplace backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new backend client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendChat posts one message turn to the chat endpoint.
func (c *Client) SendChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp := &ChatResponse{}
	if err := c.do(ctx, http.MethodPost, "/chat/", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartEnrollment creates a new enrollment record and returns its id.
func (c *Client) StartEnrollment(ctx context.Context) (string, error) {
	resp := &StartEnrollmentResponse{}
	if err := c.do(ctx, http.MethodPost, "/enrollment/start", nil, resp); err != nil {
		return "", err
	}
	if resp.EnrollmentID == "" {
		return "", errors.New("enrollment start returned empty enrollment_id")
	}
	return resp.EnrollmentID, nil
}

// GetEnrollment fetches an enrollment record.
func (c *Client) GetEnrollment(ctx context.Context, id string) (*Enrollment, error) {
	enrollment := &Enrollment{}
	if err := c.do(ctx, http.MethodGet, "/enrollment/"+id, nil, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// UpdateEnrollment patches fields of an enrollment record.
func (c *Client) UpdateEnrollment(ctx context.Context, id string, patch map[string]any) (*Enrollment, error) {
	enrollment := &Enrollment{}
	if err := c.do(ctx, http.MethodPatch, "/enrollment/"+id, patch, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// SubmitEnrollment submits an enrollment for verification.
func (c *Client) SubmitEnrollment(ctx context.Context, id string) (*Enrollment, error) {
	enrollment := &Enrollment{}
	if err := c.do(ctx, http.MethodPost, "/enrollment/"+id+"/submit", nil, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// GetServiceCatalog fetches the full service catalog.
func (c *Client) GetServiceCatalog(ctx context.Context) ([]ServiceCategory, error) {
	var catalog []ServiceCategory
	if err := c.do(ctx, http.MethodGet, "/services/catalog/full", nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a short error body for diagnostics only.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, fmt.Sprintf("decode %s %s response", method, path))
	}
	return nil
}
