package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Insecure placeholder values that must not reach production.
var insecureDefaults = map[string]bool{
	"change-me":       true,
	"your-secret-key": true,
	"test-secret":     true,
	"":                true,
}

type Config struct {
	Server     ServerConfig
	GCP        GCPConfig
	LiteLLM    LiteLLMConfig
	Registry   RegistryConfig
	Email      EmailConfig
	Stripe     StripeConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	Plans      PlanConfig

	// DefaultAnthropicKey is the shared fallback credential used when
	// budget-key issuance fails and the customer brought no key.
	DefaultAnthropicKey string
}

type ServerConfig struct {
	Port string
	Mode string
}

type GCPConfig struct {
	ProjectID       string
	Zone            string
	MachineType     string
	SourceImage     string
	DiskSizeGB      int64
	NetworkTag      string
	CredentialsJSON string
	DashboardPort   int

	PollInterval     time.Duration
	OperationTimeout time.Duration
	AddressTimeout   time.Duration
}

type LiteLLMConfig struct {
	URL       string
	MasterKey string
}

type RegistryConfig struct {
	URL        string
	ServiceKey string
}

type EmailConfig struct {
	APIKey      string
	FromAddress string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SiteURL       string
}

type AuthConfig struct {
	APISecret   string
	AdminSecret string
}

type EncryptionConfig struct {
	Key string
}

// PlanConfig holds the plan-to-budget and plan-to-models tables injected
// into the budget-key issuer. Plans without a Models entry use the
// "default" model set; plans without a Budgets entry use the Fallback
// plan's ceiling.
type PlanConfig struct {
	Budgets  map[string]float64
	Models   map[string][]string
	Fallback string
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		GCP: GCPConfig{
			ProjectID:        getEnv("GCP_PROJECT_ID", "moes-502f7"),
			Zone:             getEnv("GCP_ZONE", "northamerica-northeast1-a"),
			MachineType:      getEnv("GCP_MACHINE_TYPE", "e2-small"),
			SourceImage:      getEnv("GCP_SOURCE_IMAGE", "projects/debian-cloud/global/images/family/debian-12"),
			DiskSizeGB:       int64(getEnvInt("GCP_DISK_SIZE_GB", 20)),
			NetworkTag:       getEnv("GCP_NETWORK_TAG", "openclaw"),
			CredentialsJSON:  getEnv("GCP_SERVICE_ACCOUNT_KEY", ""),
			DashboardPort:    getEnvInt("GATEWAY_DASHBOARD_PORT", 18789),
			PollInterval:     getEnvDuration("GCP_POLL_INTERVAL", 3*time.Second),
			OperationTimeout: getEnvDuration("GCP_OPERATION_TIMEOUT", 120*time.Second),
			AddressTimeout:   getEnvDuration("GCP_ADDRESS_TIMEOUT", 60*time.Second),
		},
		LiteLLM: LiteLLMConfig{
			URL:       getEnv("LITELLM_URL", "http://localhost:4000"),
			MasterKey: getEnv("LITELLM_MASTER_KEY", ""),
		},
		Registry: RegistryConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		},
		Email: EmailConfig{
			APIKey:      getEnv("RESEND_API_KEY", ""),
			FromAddress: getEnv("EMAIL_FROM", "Moe's AI <noreply@mail.moes.ai>"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SiteURL:       getEnv("SITE_URL", "https://moes.ai"),
		},
		Auth: AuthConfig{
			APISecret:   getEnv("API_SECRET", ""),
			AdminSecret: getEnv("ADMIN_SECRET", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Plans: PlanConfig{
			Budgets: map[string]float64{
				"starter":    15,
				"pro":        50,
				"enterprise": 500,
			},
			Models: map[string][]string{
				"starter": {"anthropic/claude-haiku-4-5"},
				"default": {
					"anthropic/claude-sonnet-4-6",
					"anthropic/claude-haiku-4-5",
					"openai/gpt-4o",
				},
			},
			Fallback: "starter",
		},
		DefaultAnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
	}

	// Secrets are deliberately left out of this line.
	log.Printf("[config] Provisioning Service loaded: port=%s gcp=%s/%s registry=%s litellm=%s",
		cfg.Server.Port, cfg.GCP.ProjectID, cfg.GCP.Zone, cfg.Registry.URL, cfg.LiteLLM.URL)

	return cfg
}

// Validate checks that every secret the service cannot run without is set
// to something other than a known placeholder.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"API_SECRET", c.Auth.APISecret},
		{"ADMIN_SECRET", c.Auth.AdminSecret},
		{"ENCRYPTION_KEY", c.Encryption.Key},
		{"SUPABASE_URL", c.Registry.URL},
		{"SUPABASE_SERVICE_KEY", c.Registry.ServiceKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"GCP_SERVICE_ACCOUNT_KEY", c.GCP.CredentialsJSON},
	}
	for _, r := range required {
		if insecureDefaults[r.value] {
			return fmt.Errorf("%s must be set to a secure value", r.name)
		}
	}

	if len(c.Auth.APISecret) < 32 {
		return fmt.Errorf("API_SECRET must be at least 32 characters long")
	}
	if len(c.Auth.AdminSecret) < 32 {
		return fmt.Errorf("ADMIN_SECRET must be at least 32 characters long")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
