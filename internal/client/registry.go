package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/moes-ai/provisioning-service/internal/models"
)

// RegistryClient stores instance and API key records in Supabase via its
// PostgREST interface. Reads fail soft (nil or empty on a non-2xx
// response); writes fail loud so callers can decide what a lost write
// means.
type RegistryClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewRegistryClient(baseURL, serviceKey string) *RegistryClient {
	return &RegistryClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateInstance inserts a record and returns the stored row, including the
// registry-assigned id.
func (c *RegistryClient) CreateInstance(ctx context.Context, inst *models.NewInstance) (*models.Instance, error) {
	var rows []models.Instance
	if err := c.write(ctx, http.MethodPost, c.url("instances", ""), inst, &rows); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create instance: registry returned no rows")
	}
	return &rows[0], nil
}

// GetInstance fetches one record by id. Returns nil without error when the
// id is unknown.
func (c *RegistryClient) GetInstance(ctx context.Context, id string) (*models.Instance, error) {
	rows, err := c.read(ctx, c.url("instances", "id=eq."+id+"&select=*"))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// GetInstanceBySubscription fetches the record linked to a billing
// subscription. At most one match is expected; the first row wins.
func (c *RegistryClient) GetInstanceBySubscription(ctx context.Context, subscriptionID string) (*models.Instance, error) {
	rows, err := c.read(ctx, c.url("instances", "stripe_subscription_id=eq."+subscriptionID+"&select=*"))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// GetInstancesByEmail returns all records for a customer, newest first.
func (c *RegistryClient) GetInstancesByEmail(ctx context.Context, email string) ([]models.Instance, error) {
	query := "customer_email=eq." + url.QueryEscape(email) + "&select=*&order=created_at.desc"
	return c.read(ctx, c.url("instances", query))
}

// ListInstances returns every record, newest first.
func (c *RegistryClient) ListInstances(ctx context.Context) ([]models.Instance, error) {
	return c.read(ctx, c.url("instances", "select=*&order=created_at.desc"))
}

// UpdateInstance patches a record and returns the stored row, or nil if the
// id matched nothing.
func (c *RegistryClient) UpdateInstance(ctx context.Context, id string, patch models.InstanceUpdate) (*models.Instance, error) {
	var rows []models.Instance
	if err := c.write(ctx, http.MethodPatch, c.url("instances", "id=eq."+id), patch, &rows); err != nil {
		return nil, fmt.Errorf("update instance: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// DeleteInstance removes a record, reporting success as a boolean rather
// than echoing the deleted row.
func (c *RegistryClient) DeleteInstance(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url("instances", "id=eq."+id), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// StoreAPIKey inserts an encrypted customer credential record.
func (c *RegistryClient) StoreAPIKey(ctx context.Context, key *models.NewAPIKey) (*models.APIKey, error) {
	var rows []models.APIKey
	if err := c.write(ctx, http.MethodPost, c.url("api_keys", ""), key, &rows); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store api key: registry returned no rows")
	}
	return &rows[0], nil
}

func (c *RegistryClient) url(table, query string) string {
	u := c.baseURL + "/rest/v1/" + table
	if query != "" {
		u += "?" + query
	}
	return u
}

func (c *RegistryClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
}

func (c *RegistryClient) read(ctx context.Context, url string) ([]models.Instance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var rows []models.Instance
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

func (c *RegistryClient) write(ctx context.Context, method, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("registry returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}
	return nil
}
