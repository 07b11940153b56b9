package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// LiteLLMClient issues and revokes spend-limited virtual keys on a LiteLLM
// proxy. Each provisioned instance gets its own key, capped by the plan's
// monthly budget.
type LiteLLMClient struct {
	baseURL    string
	masterKey  string
	budgets    map[string]float64
	models     map[string][]string
	fallback   string
	httpClient *http.Client
}

// NewLiteLLMClient creates a new LiteLLM client. budgets maps plan to
// monthly spend ceiling; models maps plan to allowed model list, with a
// "default" entry for plans not listed; fallback names the plan whose
// ceiling applies to unknown plans.
func NewLiteLLMClient(baseURL, masterKey string, budgets map[string]float64, models map[string][]string, fallback string) *LiteLLMClient {
	return &LiteLLMClient{
		baseURL:   baseURL,
		masterKey: masterKey,
		budgets:   budgets,
		models:    models,
		fallback:  fallback,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VirtualKey is an issued budget key. Key is the raw credential; Token is
// the key's identifier used for revocation and usage lookups.
type VirtualKey struct {
	Key       string   `json:"key"`
	KeyName   string   `json:"key_name"`
	Token     string   `json:"token"`
	Expires   *string  `json:"expires"`
	MaxBudget *float64 `json:"max_budget"`
}

// KeyUsage reports current spend against a key's budget.
type KeyUsage struct {
	Spend     float64  `json:"spend"`
	MaxBudget *float64 `json:"max_budget"`
}

type generateKeyRequest struct {
	KeyName        string            `json:"key_name"`
	MaxBudget      float64           `json:"max_budget"`
	BudgetDuration string            `json:"budget_duration"`
	Metadata       map[string]string `json:"metadata"`
	Models         []string          `json:"models"`
}

// IssueKey creates a virtual key scoped to one instance. Unknown plans get
// the fallback plan's budget and the default model set.
func (c *LiteLLMClient) IssueKey(ctx context.Context, instanceName, plan, customerEmail string) (*VirtualKey, error) {
	maxBudget, ok := c.budgets[plan]
	if !ok {
		maxBudget = c.budgets[c.fallback]
	}
	models := c.models[plan]
	if models == nil {
		models = c.models["default"]
	}

	log.Printf("[LiteLLM] Issuing key for %s (plan: %s, budget: %.0f)", instanceName, plan, maxBudget)

	payload := generateKeyRequest{
		KeyName:        "moes-" + instanceName,
		MaxBudget:      maxBudget,
		BudgetDuration: "1mo",
		Metadata: map[string]string{
			"customer_email": customerEmail,
			"plan":           plan,
			"managed_by":     "moes-ai",
		},
		Models: models,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/key/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("litellm key creation failed: %s", string(respBody))
	}

	var key VirtualKey
	if err := json.Unmarshal(respBody, &key); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	log.Printf("[LiteLLM] Key issued: %s", key.Token)
	return &key, nil
}

// RevokeKey deletes a virtual key by its identifier.
func (c *LiteLLMClient) RevokeKey(ctx context.Context, keyID string) error {
	log.Printf("[LiteLLM] Revoking key: %s", keyID)

	body, err := json.Marshal(map[string][]string{"keys": {keyID}})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/key/delete", bytes.NewReader(body))
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

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("litellm key revocation failed: %s", string(respBody))
	}

	return nil
}

// GetUsage fetches current spend for a key. An unknown key yields zero
// spend rather than an error.
func (c *LiteLLMClient) GetUsage(ctx context.Context, keyID string) (*KeyUsage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/key/info", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("litellm key info failed: %s", string(respBody))
	}

	var info struct {
		Keys []struct {
			Token     string   `json:"token"`
			Spend     float64  `json:"spend"`
			MaxBudget *float64 `json:"max_budget"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	for _, k := range info.Keys {
		if k.Token == keyID {
			return &KeyUsage{Spend: k.Spend, MaxBudget: k.MaxBudget}, nil
		}
	}
	return &KeyUsage{}, nil
}

func (c *LiteLLMClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.masterKey)
	req.Header.Set("Content-Type", "application/json")
}
