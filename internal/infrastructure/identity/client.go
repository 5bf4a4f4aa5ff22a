package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Client is a small JSON client for the identity API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// request describes one API call. statusErrs overrides the default mapping
// of non-2xx statuses to domain errors.
type request struct {
	method     string
	path       string
	token      string
	body       any
	out        any
	statusErrs map[int]error
}

func (c *Client) do(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)
		return statusError(resp.StatusCode, eb.Error, r.statusErrs)
	}

	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

func statusError(code int, msg string, overrides map[int]error) error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	if sentinel, ok := overrides[code]; ok {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	switch {
	case code >= 500:
		return fmt.Errorf("%w: %d %s", domain.ErrRemoteUnavailable, code, msg)
	case code == http.StatusBadRequest, code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, msg)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, msg)
	}
	return fmt.Errorf("identity api: %d %s", code, msg)
}
