package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fpsos/fpsbot/internal/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/v1/search"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Error("firecrawl request failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	defer response.Body.Close()

	c.logger.Info(
		"firecrawl request complete",
		zap.String("query", query),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("firecrawl error: status %d", response.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, fmt.Errorf("firecrawl error: %s", payload.Error)
	}

	results := make([]domain.SearchResult, 0, len(payload.Data))
	for _, item := range payload.Data {
		results = append(results, domain.SearchResult{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.URL,
		})
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
