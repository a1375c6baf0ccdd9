package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client talks to the platform backend. It provides the plan catalog,
// campaign dispatch and campaign history collaborators.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: backend returned status=%d body=%s", e.Op, e.Status, e.Body)
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListPlans(ctx context.Context, botID string) ([]model.Plan, error) {
	var resp struct {
		Plans []model.Plan `json:"plans"`
	}
	path := "/bots/" + url.PathEscape(botID) + "/plans"
	if err := c.do(ctx, "list plans", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plans, nil
}

func (c *Client) SubmitCampaign(ctx context.Context, sub *model.Submission) (*model.DispatchResult, error) {
	var resp model.DispatchResult
	path := "/bots/" + url.PathEscape(sub.BotID) + "/campaigns/dispatch"
	if err := c.do(ctx, "submit campaign", http.MethodPost, path, sub, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListCampaigns(ctx context.Context, botID string, page, pageSize int) (*model.CampaignPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	path := "/bots/" + url.PathEscape(botID) + "/campaigns?" + q.Encode()

	var resp model.CampaignPage
	if err := c.do(ctx, "list campaigns", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	err := c.do(ctx, "delete campaign", http.MethodDelete, "/campaigns/"+url.PathEscape(id), nil, nil)
	var herr *HTTPError
	if errors.As(err, &herr) && herr.Status == http.StatusNotFound {
		return appErrors.NewCampaignNotFound(id)
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("%s: client is nil", op)
	}
	if c.baseURL == "" {
		return fmt.Errorf("%s: base url is empty", op)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyRequestError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			raw = []byte(fmt.Sprintf("<failed to read body: %v>", readErr))
		}
		return &HTTPError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func classifyRequestError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: timeout: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: timeout: %w", op, err)
	}
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: network error: %w", op, err)
	}
	return fmt.Errorf("%s: request error: %w", op, err)
}
