// Package service orchestrates the provisioning pipeline: budget key
// issuance, VM creation, registry bookkeeping, and onboarding email.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/moes-ai/provisioning-service/internal/client"
	"github.com/moes-ai/provisioning-service/internal/compute"
	"github.com/moes-ai/provisioning-service/internal/config"
	"github.com/moes-ai/provisioning-service/internal/models"
	"github.com/moes-ai/provisioning-service/internal/notify"
	"github.com/moes-ai/provisioning-service/internal/security"
)

var (
	// ErrNoCredential means no model credential could be resolved for the
	// instance: the customer brought none, issuance failed, and no shared
	// fallback key is configured.
	ErrNoCredential = errors.New("no model credential available")

	// ErrNotFound means the registry has no record with the given id.
	ErrNotFound = errors.New("instance not found")
)

// KeyIssuer issues and revokes spend-limited model credentials.
type KeyIssuer interface {
	IssueKey(ctx context.Context, instanceName, plan, customerEmail string) (*client.VirtualKey, error)
	RevokeKey(ctx context.Context, keyID string) error
	GetUsage(ctx context.Context, keyID string) (*client.KeyUsage, error)
}

// Provisioner creates customer VMs.
type Provisioner interface {
	Provision(ctx context.Context, instanceName, apiKey string) (*compute.Result, error)
}

// Registry persists instance and credential records.
type Registry interface {
	CreateInstance(ctx context.Context, inst *models.NewInstance) (*models.Instance, error)
	GetInstance(ctx context.Context, id string) (*models.Instance, error)
	GetInstanceBySubscription(ctx context.Context, subscriptionID string) (*models.Instance, error)
	ListInstances(ctx context.Context) ([]models.Instance, error)
	UpdateInstance(ctx context.Context, id string, patch models.InstanceUpdate) (*models.Instance, error)
	DeleteInstance(ctx context.Context, id string) (bool, error)
	StoreAPIKey(ctx context.Context, key *models.NewAPIKey) (*models.APIKey, error)
}

// Notifier sends the onboarding email.
type Notifier interface {
	SendOnboarding(ctx context.Context, email notify.OnboardingEmail) error
}

// ProvisionService runs the pipeline. The VM is the one step whose failure
// aborts a direct provision; everything after it degrades to a warning so a
// running instance is never thrown away over bookkeeping.
type ProvisionService struct {
	cfg      *config.Config
	issuer   KeyIssuer
	compute  Provisioner
	registry Registry
	notifier Notifier
	cipher   *security.Cipher
}

func NewProvisionService(cfg *config.Config, issuer KeyIssuer, compute Provisioner, registry Registry, notifier Notifier, cipher *security.Cipher) *ProvisionService {
	return &ProvisionService{
		cfg:      cfg,
		issuer:   issuer,
		compute:  compute,
		registry: registry,
		notifier: notifier,
		cipher:   cipher,
	}
}

// ProvisionDirect provisions an instance for an authenticated API caller.
// When the customer brings their own API key it is used on the VM and stored
// encrypted; otherwise a budget key is issued, with the shared fallback key
// as a last resort.
func (s *ProvisionService) ProvisionDirect(ctx context.Context, req models.ProvisionRequest) (*models.ProvisionResult, error) {
	instanceName := deriveInstanceName(req.Name)
	log.Printf("[Service] Provisioning %s for %s (plan: %s)", instanceName, req.Email, req.Plan)

	var (
		apiKey     string
		virtualKey *client.VirtualKey
	)
	if req.APIKey != "" {
		apiKey = req.APIKey
	} else {
		key, err := s.issuer.IssueKey(ctx, instanceName, req.Plan, req.Email)
		if err != nil {
			log.Printf("[Service] Key issuance failed for %s: %v", instanceName, err)
		} else {
			virtualKey = key
			apiKey = key.Key
		}
	}
	if apiKey == "" {
		apiKey = s.cfg.DefaultAnthropicKey
	}
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	result, err := s.compute.Provision(ctx, instanceName, apiKey)
	if err != nil {
		return nil, fmt.Errorf("provision instance: %w", err)
	}

	var warnings []string

	record := s.newRecord(req.Email, &req.Name, instanceName, req.Plan, models.StatusActive, result, virtualKey)
	stored, err := s.registry.CreateInstance(ctx, record)
	if err != nil {
		log.Printf("[Service] Registry write failed for %s: %v", instanceName, err)
		warnings = append(warnings, "instance is running but could not be recorded")
	}

	if req.APIKey != "" {
		if stored == nil {
			warnings = append(warnings, "customer API key was not stored")
		} else if err := s.storeCustomerKey(ctx, stored.ID, req.APIKey); err != nil {
			log.Printf("[Service] API key storage failed for %s: %v", instanceName, err)
			warnings = append(warnings, "customer API key was not stored")
		}
	}

	if err := s.sendOnboarding(ctx, req.Email, req.Name, req.Plan, result); err != nil {
		log.Printf("[Service] Onboarding email failed for %s: %v", req.Email, err)
		warnings = append(warnings, "onboarding email could not be sent")
	}

	return &models.ProvisionResult{
		InstanceName: result.InstanceName,
		ExternalIP:   result.ExternalIP,
		GatewayToken: result.GatewayToken,
		DashboardURL: result.DashboardURL,
		Warnings:     warnings,
	}, nil
}

// HandleCheckoutCompleted provisions after a successful payment. Unlike the
// direct path, a VM failure is tolerated: the paid customer gets a
// registry record in provisioning status for an operator to finish, and
// only a lost registry write is an error, since that would orphan the
// payment entirely.
func (s *ProvisionService) HandleCheckoutCompleted(ctx context.Context, sess models.CheckoutSession) error {
	if sess.Email == "" {
		log.Printf("[Service] Checkout session has no customer email, skipping")
		return nil
	}

	customerName := strings.SplitN(sess.Email, "@", 2)[0]
	instanceName := deriveInstanceName(customerName)
	log.Printf("[Service] Checkout completed for %s (plan: %s), provisioning %s", sess.Email, sess.Plan, instanceName)

	var (
		apiKey     string
		virtualKey *client.VirtualKey
	)
	key, err := s.issuer.IssueKey(ctx, instanceName, sess.Plan, sess.Email)
	if err != nil {
		log.Printf("[Service] Key issuance failed for %s: %v", instanceName, err)
		apiKey = s.cfg.DefaultAnthropicKey
	} else {
		virtualKey = key
		apiKey = key.Key
	}
	if apiKey == "" {
		return ErrNoCredential
	}

	status := models.StatusActive
	result, err := s.compute.Provision(ctx, instanceName, apiKey)
	if err != nil {
		log.Printf("[Service] VM creation failed for %s, recording for manual completion: %v", instanceName, err)
		status = models.StatusProvisioning
		result = nil
	}

	record := s.newRecord(sess.Email, &customerName, instanceName, sess.Plan, status, result, virtualKey)
	record.StripeCustomerID = optional(sess.CustomerID)
	record.StripeSubscriptionID = optional(sess.SubscriptionID)
	if result == nil {
		// The token hash column is non-null. With no VM there is no token
		// to deliver, so hash a throwaway value that can never verify.
		placeholder, err := security.GenerateToken()
		if err != nil {
			return err
		}
		record.GatewayTokenHash = security.HashToken(placeholder)
	}

	if _, err := s.registry.CreateInstance(ctx, record); err != nil {
		return fmt.Errorf("record paid instance: %w", err)
	}

	if result != nil {
		if err := s.sendOnboarding(ctx, sess.Email, customerName, sess.Plan, result); err != nil {
			log.Printf("[Service] Onboarding email failed for %s: %v", sess.Email, err)
		}
	}
	return nil
}

// HandleSubscriptionDeleted terminates the instance tied to a cancelled
// subscription. An unknown subscription is a no-op so webhook retries and
// test events stay harmless.
func (s *ProvisionService) HandleSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	inst, err := s.registry.GetInstanceBySubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if inst == nil {
		log.Printf("[Service] No instance for cancelled subscription %s", subscriptionID)
		return nil
	}

	s.revokeIfIssued(ctx, inst)

	status := models.StatusTerminated
	if _, err := s.registry.UpdateInstance(ctx, inst.ID, models.InstanceUpdate{Status: &status}); err != nil {
		return err
	}
	log.Printf("[Service] Instance %s terminated (subscription %s)", inst.InstanceName, subscriptionID)
	return nil
}

// HandlePaymentFailed suspends the instance tied to a delinquent
// subscription.
func (s *ProvisionService) HandlePaymentFailed(ctx context.Context, subscriptionID string) error {
	inst, err := s.registry.GetInstanceBySubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if inst == nil {
		log.Printf("[Service] No instance for delinquent subscription %s", subscriptionID)
		return nil
	}

	status := models.StatusSuspended
	if _, err := s.registry.UpdateInstance(ctx, inst.ID, models.InstanceUpdate{Status: &status}); err != nil {
		return err
	}
	log.Printf("[Service] Instance %s suspended (subscription %s)", inst.InstanceName, subscriptionID)
	return nil
}

// ListInstances returns every registry record.
func (s *ProvisionService) ListInstances(ctx context.Context) ([]models.Instance, error) {
	return s.registry.ListInstances(ctx)
}

// SuspendInstance marks an instance suspended.
// TODO: also stop the VM so a suspended instance stops serving traffic.
func (s *ProvisionService) SuspendInstance(ctx context.Context, id string) (*models.Instance, error) {
	status := models.StatusSuspended
	inst, err := s.registry.UpdateInstance(ctx, id, models.InstanceUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, ErrNotFound
	}
	return inst, nil
}

// DeleteInstance revokes the instance's budget key and removes its registry
// record. Revocation is best effort; a dangling key only caps spend it can
// no longer incur.
// TODO: call Instances.Delete so the VM itself is reclaimed.
func (s *ProvisionService) DeleteInstance(ctx context.Context, id string) error {
	inst, err := s.registry.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	if inst == nil {
		return ErrNotFound
	}

	s.revokeIfIssued(ctx, inst)

	ok, err := s.registry.DeleteInstance(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("registry refused to delete instance %s", id)
	}
	return nil
}

// InstanceUsage reports current model spend for an instance. Instances
// without an issued key report zero.
func (s *ProvisionService) InstanceUsage(ctx context.Context, id string) (*client.KeyUsage, error) {
	inst, err := s.registry.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, ErrNotFound
	}
	if inst.LiteLLMKeyID == nil || *inst.LiteLLMKeyID == "" {
		return &client.KeyUsage{}, nil
	}
	return s.issuer.GetUsage(ctx, *inst.LiteLLMKeyID)
}

func (s *ProvisionService) newRecord(email string, name *string, instanceName, plan, status string, result *compute.Result, virtualKey *client.VirtualKey) *models.NewInstance {
	record := &models.NewInstance{
		CustomerEmail: email,
		CustomerName:  name,
		InstanceName:  instanceName,
		Plan:          plan,
		Status:        status,
		Model:         models.ModelForPlan(plan),
		Region:        s.cfg.GCP.Zone,
	}
	if result != nil {
		record.GCPInstanceID = &result.InstanceName
		record.ExternalIP = &result.ExternalIP
		record.GatewayTokenHash = security.HashToken(result.GatewayToken)
	}
	if virtualKey != nil {
		record.LiteLLMKeyID = &virtualKey.Token
		record.LiteLLMVirtualKey = &virtualKey.Key
	}
	return record
}

func (s *ProvisionService) storeCustomerKey(ctx context.Context, instanceID, rawKey string) error {
	encrypted, err := s.cipher.Encrypt(rawKey)
	if err != nil {
		return err
	}
	_, err = s.registry.StoreAPIKey(ctx, &models.NewAPIKey{
		InstanceID: instanceID,
		Provider:   "anthropic",
		KeyHash:    encrypted,
	})
	return err
}

func (s *ProvisionService) sendOnboarding(ctx context.Context, email, name, plan string, result *compute.Result) error {
	return s.notifier.SendOnboarding(ctx, notify.OnboardingEmail{
		RecipientEmail: email,
		RecipientName:  name,
		DashboardURL:   result.DashboardURL,
		GatewayToken:   result.GatewayToken,
		InstanceIP:     result.ExternalIP,
		Plan:           plan,
	})
}

func (s *ProvisionService) revokeIfIssued(ctx context.Context, inst *models.Instance) {
	if inst.LiteLLMKeyID == nil || *inst.LiteLLMKeyID == "" {
		return
	}
	if err := s.issuer.RevokeKey(ctx, *inst.LiteLLMKeyID); err != nil {
		log.Printf("[Service] Key revocation failed for %s: %v", inst.InstanceName, err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
