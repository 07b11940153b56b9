package models

// Instance status constants
const (
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusSuspended    = "suspended"
	StatusTerminated   = "terminated"
)

// Instance is the durable record of one provisioned customer deployment,
// stored in the registry. Field names follow the registry columns.
type Instance struct {
	ID                   string  `json:"id"`
	CustomerEmail        string  `json:"customer_email"`
	CustomerName         *string `json:"customer_name"`
	InstanceName         string  `json:"instance_name"`
	GCPInstanceID        *string `json:"gcp_instance_id"`
	ExternalIP           *string `json:"external_ip"`
	GatewayTokenHash     string  `json:"gateway_token_hash"`
	StripeCustomerID     *string `json:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
	Plan                 string  `json:"plan"`
	Status               string  `json:"status"`
	Model                string  `json:"model"`
	Region               string  `json:"region"`
	LiteLLMKeyID         *string `json:"litellm_key_id"`
	LiteLLMVirtualKey    *string `json:"litellm_virtual_key"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// NewInstance is the payload for creating an instance record. The registry
// assigns id and timestamps.
type NewInstance struct {
	CustomerEmail        string  `json:"customer_email"`
	CustomerName         *string `json:"customer_name"`
	InstanceName         string  `json:"instance_name"`
	GCPInstanceID        *string `json:"gcp_instance_id"`
	ExternalIP           *string `json:"external_ip"`
	GatewayTokenHash     string  `json:"gateway_token_hash"`
	StripeCustomerID     *string `json:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
	Plan                 string  `json:"plan"`
	Status               string  `json:"status"`
	Model                string  `json:"model"`
	Region               string  `json:"region"`
	LiteLLMKeyID         *string `json:"litellm_key_id"`
	LiteLLMVirtualKey    *string `json:"litellm_virtual_key"`
}

// InstanceUpdate is a partial patch applied to an instance record. Only
// non-nil fields are sent.
type InstanceUpdate struct {
	Status        *string `json:"status,omitempty"`
	GCPInstanceID *string `json:"gcp_instance_id,omitempty"`
	ExternalIP    *string `json:"external_ip,omitempty"`
}

// APIKey records a customer-supplied model credential, linked to an
// instance. The raw secret is stored encrypted, never in the clear.
type APIKey struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	Provider   string `json:"provider"`
	KeyHash    string `json:"key_hash"`
	CreatedAt  string `json:"created_at"`
}

// NewAPIKey is the payload for storing an encrypted customer credential.
type NewAPIKey struct {
	InstanceID string `json:"instance_id"`
	Provider   string `json:"provider"`
	KeyHash    string `json:"key_hash"`
}
