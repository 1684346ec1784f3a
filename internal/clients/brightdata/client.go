package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fanforge-server/internal/observability"
)

const baseURL = "https://api.brightdata.com/datasets/v3"

var (
	ErrSnapshotNotReady = errors.New("snapshot not ready")
	ErrSnapshotFailed   = errors.New("snapshot failed")
)

// Snapshot statuses reported by the progress endpoint.
const (
	StatusRunning = "running"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type progressResponse struct {
	Status string `json:"status"`
}

// Client calls the BrightData dataset API
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a new BrightData API client
func NewClient(apiKey string, logger *observability.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// TriggerCollection starts a scrape of the given URL against a dataset and
// returns the snapshot id used to track the job.
func (c *Client) TriggerCollection(ctx context.Context, datasetID, targetURL string) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "brightdata_dataset", Value: datasetID},
		observability.Field{Key: "target_url", Value: targetURL},
	)

	payload, err := json.Marshal([]map[string]string{{"url": targetURL}})
	if err != nil {
		return "", fmt.Errorf("failed to prepare trigger request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/trigger?dataset_id=%s&include_errors=true", baseURL, url.QueryEscape(datasetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create trigger request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "brightdata trigger request failed", err)
		return "", fmt.Errorf("brightdata trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("brightdata trigger returned status %d", resp.StatusCode)
		c.logger.Error(ctx, "brightdata trigger rejected", err)
		return "", err
	}

	var triggered triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&triggered); err != nil {
		return "", fmt.Errorf("failed to decode trigger response: %w", err)
	}
	if triggered.SnapshotID == "" {
		return "", errors.New("brightdata trigger returned empty snapshot id")
	}

	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "snapshot_id", Value: triggered.SnapshotID}), "brightdata collection triggered")
	return triggered.SnapshotID, nil
}

// SnapshotStatus returns the job status for a snapshot.
func (c *Client) SnapshotStatus(ctx context.Context, snapshotID string) (string, error) {
	endpoint := fmt.Sprintf("%s/progress/%s", baseURL, url.PathEscape(snapshotID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create progress request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "brightdata progress request failed", err)
		return "", fmt.Errorf("brightdata progress request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("brightdata progress returned status %d", resp.StatusCode)
	}

	var progress progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		return "", fmt.Errorf("failed to decode progress response: %w", err)
	}
	return progress.Status, nil
}

// FetchSnapshot downloads the records of a ready snapshot. A still-running
// job surfaces ErrSnapshotNotReady so callers can keep polling.
func (c *Client) FetchSnapshot(ctx context.Context, snapshotID string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/snapshot/%s?format=json", baseURL, url.PathEscape(snapshotID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "brightdata snapshot request failed", err)
		return nil, fmt.Errorf("brightdata snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	// 202 means the snapshot is still being built.
	if resp.StatusCode == http.StatusAccepted {
		return nil, ErrSnapshotNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brightdata snapshot returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		// Some datasets return a single object instead of an array.
		var single map[string]any
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return nil, fmt.Errorf("failed to decode snapshot body: %w", err)
		}
		records = []map[string]any{single}
	}
	return records, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
