package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"incident-dashboard/internal/domain/incident"
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the incident REST API.
type Client struct {
	HTTP *resty.Client
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("incident api: status %d", e.Status)
	}
	return fmt.Sprintf("incident api: status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

func New(cfg Config) *Client {
	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		r.SetAuthToken(cfg.Token)
	}
	return &Client{HTTP: r}
}

// List fetches incidents newest first. A nil filter fetches all of them.
func (c *Client) List(ctx context.Context, resolved *bool) ([]incident.Incident, error) {
	var out []incident.Incident

	req := c.HTTP.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{})
	if resolved != nil {
		req.SetQueryParam("resolved", strconv.FormatBool(*resolved))
	}

	resp, err := req.Get("/incidents")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	if out == nil {
		out = []incident.Incident{}
	}
	return out, nil
}

// Resolve flips the resolved flag of one incident and returns the server's record.
func (c *Client) Resolve(ctx context.Context, id string) (*incident.Incident, error) {
	var out incident.Incident

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Patch("/incidents/" + url.PathEscape(id) + "/resolve")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &out, nil
}

func apiError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		e.Message = body.Error
	}
	return e
}
