package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rewards_backend/internal/domain"
)

// HTTPSource reads the catalog from a static file server.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) Document(ctx context.Context) (Document, error) {
	var doc Document
	if err := s.getJSON(ctx, DocumentFile, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *HTTPSource) TierIndex(ctx context.Context, rarity domain.Rarity) ([]IndexItem, error) {
	var items []IndexItem
	if err := s.getJSON(ctx, indexPath(rarity), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, name string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
