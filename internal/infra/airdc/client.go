// Package airdc talks to the AirDC++ Web API.
package airdc

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

	"airdc_upload_monitor/internal/domain/transfer"

	"github.com/sirupsen/logrus"
)

const (
	userAgent     = "airdc-upload-monitor/1.0"
	transfersPath = "/api/v1/transfers"
)

// Client fetches transfer listings using HTTP basic auth.
type Client struct {
	baseURL  *url.URL
	user     string
	password string
	http     *http.Client
	logger   *logrus.Entry
}

// NewClient builds a client for scheme://address. A zero timeout defaults to 10s.
func NewClient(scheme, address, user, password string, timeout time.Duration, logger *logrus.Entry) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("airdc address is empty")
	}
	if scheme == "" {
		scheme = "http"
	}
	base, err := url.Parse(scheme + "://" + address)
	if err != nil {
		return nil, fmt.Errorf("parse airdc address %q: %w", address, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL:  base,
		user:     user,
		password: password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// ListTransfers returns all current transfers. A response body that is not a
// JSON array is treated as an empty listing.
func (c *Client) ListTransfers(ctx context.Context) ([]transfer.Transfer, error) {
	endpoint := c.baseURL.JoinPath(transfersPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api %s returned status %d", transfersPath, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if c.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.WithField("body", string(body)).Debug("Received transfers from API")
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.Debug("Transfers response is not a list, treating as empty")
		return []transfer.Transfer{}, nil
	}

	var transfers []transfer.Transfer
	if err := json.Unmarshal(trimmed, &transfers); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return transfers, nil
}
