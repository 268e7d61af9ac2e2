package connectors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-psa/internal/models"
)

// RESTConnector serves the REST API kind: a single GET with a
// configurable auth strategy, unwrapping common envelope shapes to a flat
// record array.
type RESTConnector struct {
	cfg    *models.ConnectionConfig
	client *http.Client
}

func newRESTConnector(cfg *models.ConnectionConfig) *RESTConnector {
	return &RESTConnector{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RESTConnector) Kind() models.SourceKind {
	return models.SourceREST
}

func (c *RESTConnector) fetch(ctx context.Context) ([]map[string]interface{}, error) {
	api := c.cfg.API

	endpoint := api.URL
	if api.AuthType == models.AuthAPIKeyQuery {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL: %w", err)
		}
		q := u.Query()
		q.Set(api.KeyName, api.APIKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	switch api.AuthType {
	case models.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+api.Token)
	case models.AuthAPIKeyHead:
		req.Header.Set(api.KeyName, api.APIKey)
	case models.AuthBasic:
		req.SetBasicAuth(api.Username, api.Password)
	}
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	rows, err := decodeRecordArray(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}
	return rows, nil
}

func (c *RESTConnector) TestConnection(ctx context.Context) *TestResult {
	start := time.Now()

	rows, err := c.fetch(ctx)
	if err != nil {
		return &TestResult{Success: false, Message: err.Error(), ConnectionTime: time.Since(start)}
	}

	table := inferTable("api", nil, rows)
	return &TestResult{
		Success:        true,
		Message:        fmt.Sprintf("fetched %d records from API", len(rows)),
		ConnectionTime: time.Since(start),
		Schema:         &models.SourceSchema{Tables: []models.SourceTable{table}},
		RecordCount:    int64(len(rows)),
	}
}

func (c *RESTConnector) Schema(ctx context.Context) (*models.SourceSchema, error) {
	rows, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	table := inferTable("api", nil, rows)
	return &models.SourceSchema{Tables: []models.SourceTable{table}}, nil
}

func (c *RESTConnector) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	return c.fetch(ctx)
}

func (c *RESTConnector) TablePreview(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (c *RESTConnector) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	return nil, fmt.Errorf("rest sources do not support queries")
}
