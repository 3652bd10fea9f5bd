// Package thingspeak reads channel feeds from a ThingSpeak-compatible API.
package thingspeak

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
	"time"
)

const (
	DefaultBaseURL  = "https://api.thingspeak.com"
	USER_AGENT      = "thermowatch/1.0"
	REQUEST_TIMEOUT = 10 * time.Second
)

// ErrChannelNotConfigured is returned when no channel id was supplied.
var ErrChannelNotConfigured = errors.New("thingspeak channel id is not configured")

type Client struct {
	httpClient *http.Client
	baseURL    string
	channelID  string
	readAPIKey string
	logger     *slog.Logger
}

// NewClient creates a client for one channel. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, channelID, readAPIKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: REQUEST_TIMEOUT},
		baseURL:    baseURL,
		channelID:  channelID,
		readAPIKey: readAPIKey,
		logger:     logger,
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (client *Client) SetHTTPClient(httpClient *http.Client) {
	client.httpClient = httpClient
}

// FetchBatch fetches the newest entry when size <= 1, otherwise the newest size entries.
func (client *Client) FetchBatch(ctx context.Context, size int) ([]Entry, error) {
	if size <= 1 {
		return client.FetchLast(ctx)
	}
	return client.FetchFeeds(ctx, size)
}

// FetchFeeds fetches up to results recent entries, oldest first.
func (client *Client) FetchFeeds(ctx context.Context, results int) ([]Entry, error) {
	params := url.Values{}
	params.Set("results", fmt.Sprint(results))

	body, err := client.get(ctx, "feeds.json", params)
	if err != nil {
		return nil, err
	}

	var data struct {
		Feeds []Entry `json:"feeds"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feeds: %w", err)
	}

	client.logger.Debug("Feeds fetched", "channel", client.channelID, "entries", len(data.Feeds))
	return data.Feeds, nil
}

// FetchLast fetches the single newest entry. An empty channel yields no entries.
func (client *Client) FetchLast(ctx context.Context) ([]Entry, error) {
	body, err := client.get(ctx, "feeds/last.json", url.Values{})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("-1")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last entry: %w", err)
	}
	if entry.CreatedAt == "" && len(entry.Fields) == 0 {
		return nil, nil
	}

	client.logger.Debug("Last entry fetched", "channel", client.channelID, "entry_id", entry.EntryID)
	return []Entry{entry}, nil
}

func (client *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if client.channelID == "" {
		return nil, ErrChannelNotConfigured
	}
	if client.readAPIKey != "" {
		params.Set("api_key", client.readAPIKey)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/%s", client.baseURL, url.PathEscape(client.channelID), path)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", USER_AGENT)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", path, response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
