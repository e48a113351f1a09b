package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrRejected is returned when the remote host refuses the cancellation.
var ErrRejected = errors.New("federation: cancellation rejected")

// ErrUnavailable is returned when the remote host cannot be reached.
var ErrUnavailable = errors.New("federation: host unavailable")

// Client talks to federated scheduler instances that hold the authoritative
// copy of external reservations.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a federation client. If httpClient is nil a default with
// a request timeout is used.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// DefaultHTTPClient returns the HTTP client used when none is injected.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// Cancel asks the federated host to cancel the reservation it owns. A nil
// return means the remote copy is gone and the local mirror may be replaced.
func (c *Client) Cancel(ctx context.Context, host, externalID string) error {
	if host == "" || externalID == "" {
		return fmt.Errorf("federation: host and reservation id are required")
	}

	url := fmt.Sprintf("https://%s/api/v1/reservations/%s", host, externalID)
	if c.baseURL != "" {
		url = fmt.Sprintf("%s/hosts/%s/reservations/%s", c.baseURL, host, externalID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		// A missing remote reservation counts as cancelled.
		return nil
	case http.StatusConflict, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("federation: unexpected status %d cancelling reservation", resp.StatusCode)
	}
}
