package models

// ProvisionRequest is the body of a direct provisioning call.
type ProvisionRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
	APIKey string `json:"apiKey"`
}

// ProvisionResult is the orchestrator's outcome for one provisioning
// attempt. Warnings carry failures that were deliberately not fatal
// (registry write, credential storage, email) so callers and tests can see
// degraded-but-successful outcomes.
type ProvisionResult struct {
	InstanceName string
	ExternalIP   string
	GatewayToken string
	DashboardURL string
	Warnings     []string
}

// ProvisionResponse is the JSON body returned to a direct provisioning
// caller.
type ProvisionResponse struct {
	Success      bool     `json:"success"`
	InstanceName string   `json:"instanceName"`
	IP           string   `json:"ip"`
	Token        string   `json:"token"`
	DashboardURL string   `json:"dashboardUrl"`
	Warnings     []string `json:"warnings,omitempty"`
}

// CheckoutRequest is the body of a checkout session call.
type CheckoutRequest struct {
	Plan     string `json:"plan"`
	Email    string `json:"email"`
	Interval string `json:"interval"`
}

// CheckoutSession carries the fields the orchestrator needs from a billing
// "checkout completed" event.
type CheckoutSession struct {
	Email          string
	Plan           string
	CustomerID     string
	SubscriptionID string
}
