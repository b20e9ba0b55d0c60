package kitchenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"pizza-order-service/models"
	"strings"
	"time"
)

// SnapshotFetcher loads today's orders over REST.
type SnapshotFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewSnapshotFetcher(baseURL, token string, timeout time.Duration) *SnapshotFetcher {
	return &SnapshotFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Today calls GET /orders/today.
func (f *SnapshotFetcher) Today(ctx context.Context) ([]models.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/orders/today", nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var orders []models.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode today's orders: %w", err)
	}
	return orders, nil
}
