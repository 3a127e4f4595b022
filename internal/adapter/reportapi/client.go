// Package reportapi asks the reporting service to export a user's forecast
// history as a spreadsheet.
package reportapi

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

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// ErrNoHistory means the user has no saved predictions to export.
var ErrNoHistory = errors.New("no saved predictions to export")

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Client implements domain.ReportProvider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a reporting service client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Export requests a report for userID and returns its download handle.
func (c *Client) Export(ctx context.Context, userID string) (domain.Artifact, error) {
	if userID == "" {
		return domain.Artifact{}, domain.ErrAuthenticationRequired
	}
	u := fmt.Sprintf("%s/reports/%s/export", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.Artifact{}, domain.ErrAuthenticationRequired
	case http.StatusNotFound:
		return domain.Artifact{}, ErrNoHistory
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Artifact{}, fmt.Errorf("report API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var artifact domain.Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		return domain.Artifact{}, fmt.Errorf("decode response: %w", err)
	}
	if artifact.URL == "" {
		return domain.Artifact{}, errors.New("report API returned no download URL")
	}
	if artifact.ContentType == "" {
		artifact.ContentType = excelContentType
	}
	c.logger.Debug("report exported", "user_id", userID, "name", artifact.Name)
	return artifact, nil
}
