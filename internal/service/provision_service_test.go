package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moes-ai/provisioning-service/internal/client"
	"github.com/moes-ai/provisioning-service/internal/compute"
	"github.com/moes-ai/provisioning-service/internal/config"
	"github.com/moes-ai/provisioning-service/internal/models"
	"github.com/moes-ai/provisioning-service/internal/notify"
	"github.com/moes-ai/provisioning-service/internal/security"
)

type fakeIssuer struct {
	key      *client.VirtualKey
	issueErr error
	usage    *client.KeyUsage

	issueCalls int
	revoked    []string
}

func (f *fakeIssuer) IssueKey(ctx context.Context, instanceName, plan, customerEmail string) (*client.VirtualKey, error) {
	f.issueCalls++
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.key, nil
}

func (f *fakeIssuer) RevokeKey(ctx context.Context, keyID string) error {
	f.revoked = append(f.revoked, keyID)
	return nil
}

func (f *fakeIssuer) GetUsage(ctx context.Context, keyID string) (*client.KeyUsage, error) {
	return f.usage, nil
}

type fakeProvisioner struct {
	result *compute.Result
	err    error

	calls  int
	gotKey string
}

func (f *fakeProvisioner) Provision(ctx context.Context, instanceName, apiKey string) (*compute.Result, error) {
	f.calls++
	f.gotKey = apiKey
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.InstanceName = instanceName
	return &res, nil
}

type fakeRegistry struct {
	createErr error
	instances map[string]*models.Instance
	bySub     map[string]*models.Instance
	deleteOK  bool
	storeErr  error

	created []*models.NewInstance
	patches map[string]models.InstanceUpdate
	stored  []*models.NewAPIKey
	deleted []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		instances: map[string]*models.Instance{},
		bySub:     map[string]*models.Instance{},
		patches:   map[string]models.InstanceUpdate{},
		deleteOK:  true,
	}
}

func (f *fakeRegistry) CreateInstance(ctx context.Context, inst *models.NewInstance) (*models.Instance, error) {
	f.created = append(f.created, inst)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Instance{ID: "reg-1", InstanceName: inst.InstanceName, Status: inst.Status}, nil
}

func (f *fakeRegistry) GetInstance(ctx context.Context, id string) (*models.Instance, error) {
	return f.instances[id], nil
}

func (f *fakeRegistry) GetInstanceBySubscription(ctx context.Context, subscriptionID string) (*models.Instance, error) {
	return f.bySub[subscriptionID], nil
}

func (f *fakeRegistry) ListInstances(ctx context.Context) ([]models.Instance, error) {
	return nil, nil
}

func (f *fakeRegistry) UpdateInstance(ctx context.Context, id string, patch models.InstanceUpdate) (*models.Instance, error) {
	f.patches[id] = patch
	if inst, ok := f.instances[id]; ok {
		return inst, nil
	}
	if len(f.bySub) > 0 {
		return &models.Instance{ID: id}, nil
	}
	return nil, nil
}

func (f *fakeRegistry) DeleteInstance(ctx context.Context, id string) (bool, error) {
	f.deleted = append(f.deleted, id)
	return f.deleteOK, nil
}

func (f *fakeRegistry) StoreAPIKey(ctx context.Context, key *models.NewAPIKey) (*models.APIKey, error) {
	f.stored = append(f.stored, key)
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return &models.APIKey{ID: "key-1", InstanceID: key.InstanceID}, nil
}

type fakeNotifier struct {
	err  error
	sent []notify.OnboardingEmail
}

func (f *fakeNotifier) SendOnboarding(ctx context.Context, email notify.OnboardingEmail) error {
	f.sent = append(f.sent, email)
	return f.err
}

type fixture struct {
	svc      *ProvisionService
	issuer   *fakeIssuer
	prov     *fakeProvisioner
	registry *fakeRegistry
	notifier *fakeNotifier
	cipher   *security.Cipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cipher, err := security.NewCipher("unit-test-secret")
	require.NoError(t, err)

	issuer := &fakeIssuer{
		key: &client.VirtualKey{Key: "sk-virtual-1", Token: "key-token-1"},
	}
	prov := &fakeProvisioner{
		result: &compute.Result{
			ExternalIP:   "203.0.113.7",
			GatewayToken: "gateway-token-raw",
			DashboardURL: "http://203.0.113.7:18789",
		},
	}
	registry := newFakeRegistry()
	notifier := &fakeNotifier{}

	cfg := &config.Config{
		GCP:                 config.GCPConfig{Zone: "test-zone-a"},
		DefaultAnthropicKey: "sk-ant-shared",
	}

	return &fixture{
		svc:      NewProvisionService(cfg, issuer, prov, registry, notifier, cipher),
		issuer:   issuer,
		prov:     prov,
		registry: registry,
		notifier: notifier,
		cipher:   cipher,
	}
}

func TestProvisionDirectIssuesBudgetKey(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Alice Smith", Email: "alice@example.com", Plan: "pro",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.issuer.issueCalls)
	assert.Equal(t, "sk-virtual-1", f.prov.gotKey)
	assert.Equal(t, "gateway-token-raw", res.GatewayToken)
	assert.Empty(t, res.Warnings)

	require.Len(t, f.registry.created, 1)
	rec := f.registry.created[0]
	assert.Equal(t, "alice@example.com", rec.CustomerEmail)
	assert.Equal(t, models.StatusActive, rec.Status)
	assert.Equal(t, "anthropic/claude-sonnet-4-6", rec.Model)
	assert.Equal(t, "test-zone-a", rec.Region)
	assert.Equal(t, security.HashToken("gateway-token-raw"), rec.GatewayTokenHash)
	require.NotNil(t, rec.LiteLLMKeyID)
	assert.Equal(t, "key-token-1", *rec.LiteLLMKeyID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "gateway-token-raw", f.notifier.sent[0].GatewayToken)
	assert.Empty(t, f.registry.stored, "no customer key to store")
}

func TestProvisionDirectCustomerKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Bob", Email: "bob@example.com", Plan: "starter", APIKey: "sk-ant-customer",
	})
	require.NoError(t, err)

	assert.Zero(t, f.issuer.issueCalls, "customer key skips issuance")
	assert.Equal(t, "sk-ant-customer", f.prov.gotKey)

	require.Len(t, f.registry.stored, 1)
	stored := f.registry.stored[0]
	assert.Equal(t, "reg-1", stored.InstanceID)
	assert.Equal(t, "anthropic", stored.Provider)

	plain, err := f.cipher.Decrypt(stored.KeyHash)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-customer", plain)
}

func TestProvisionDirectIssuanceFailureUsesFallbackKey(t *testing.T) {
	f := newFixture(t)
	f.issuer.issueErr = errors.New("proxy down")

	res, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Carol", Email: "carol@example.com", Plan: "pro",
	})
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-shared", f.prov.gotKey)
	assert.Empty(t, res.Warnings)
	require.Len(t, f.registry.created, 1)
	assert.Nil(t, f.registry.created[0].LiteLLMKeyID)
}

func TestProvisionDirectNoCredential(t *testing.T) {
	f := newFixture(t)
	f.issuer.issueErr = errors.New("proxy down")
	f.svc.cfg.DefaultAnthropicKey = ""

	_, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Dave", Email: "dave@example.com", Plan: "pro",
	})
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Zero(t, f.prov.calls, "no VM without a credential")
}

func TestProvisionDirectComputeFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.prov.err = errors.New("quota exceeded")

	_, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Eve", Email: "eve@example.com", Plan: "pro",
	})
	require.Error(t, err)
	assert.Empty(t, f.registry.created, "failed VM leaves no record")
	assert.Empty(t, f.notifier.sent)
}

func TestProvisionDirectRegistryFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.registry.createErr = errors.New("registry down")

	res, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Frank", Email: "frank@example.com", Plan: "pro",
	})
	require.NoError(t, err)

	assert.Contains(t, res.Warnings, "instance is running but could not be recorded")
	require.Len(t, f.notifier.sent, 1, "email still goes out")
}

func TestProvisionDirectCustomerKeyNotStoredWithoutRecord(t *testing.T) {
	f := newFixture(t)
	f.registry.createErr = errors.New("registry down")

	res, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Grace", Email: "grace@example.com", Plan: "pro", APIKey: "sk-ant-byo",
	})
	require.NoError(t, err)

	assert.Empty(t, f.registry.stored, "credential row needs an instance id to link to")
	assert.Contains(t, res.Warnings, "customer API key was not stored")
}

func TestProvisionDirectEmailFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("mail provider down")

	res, err := f.svc.ProvisionDirect(context.Background(), models.ProvisionRequest{
		Name: "Heidi", Email: "heidi@example.com", Plan: "pro",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, "onboarding email could not be sent")
}

func TestHandleCheckoutCompleted(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleCheckoutCompleted(context.Background(), models.CheckoutSession{
		Email:          "ivy.lee@example.com",
		Plan:           "pro",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
	})
	require.NoError(t, err)

	require.Len(t, f.registry.created, 1)
	rec := f.registry.created[0]
	assert.Equal(t, models.StatusActive, rec.Status)
	require.NotNil(t, rec.CustomerName)
	assert.Equal(t, "ivy.lee", *rec.CustomerName)
	require.NotNil(t, rec.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *rec.StripeSubscriptionID)
	require.NotNil(t, rec.StripeCustomerID)
	assert.Equal(t, "cus_1", *rec.StripeCustomerID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "ivy.lee@example.com", f.notifier.sent[0].RecipientEmail)
}

func TestHandleCheckoutWithoutEmailIsSkipped(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleCheckoutCompleted(context.Background(), models.CheckoutSession{
		Plan: "pro", CustomerID: "cus_8", SubscriptionID: "sub_8",
	})
	require.NoError(t, err, "an unaddressable session is skipped, not failed")

	assert.Zero(t, f.issuer.issueCalls, "no key without a customer to bill")
	assert.Zero(t, f.prov.calls, "no VM without a customer to notify")
	assert.Empty(t, f.registry.created)
	assert.Empty(t, f.notifier.sent)
}

func TestHandleCheckoutVMFailureStillRecords(t *testing.T) {
	f := newFixture(t)
	f.prov.err = errors.New("zone exhausted")

	err := f.svc.HandleCheckoutCompleted(context.Background(), models.CheckoutSession{
		Email: "jan@example.com", Plan: "starter", SubscriptionID: "sub_2",
	})
	require.NoError(t, err, "a paid customer is never dropped over a VM failure")

	require.Len(t, f.registry.created, 1)
	rec := f.registry.created[0]
	assert.Equal(t, models.StatusProvisioning, rec.Status)
	assert.Nil(t, rec.GCPInstanceID)
	assert.Nil(t, rec.ExternalIP)
	assert.NotEmpty(t, rec.GatewayTokenHash)
	assert.Empty(t, f.notifier.sent, "no email without a reachable instance")
}

func TestHandleCheckoutRegistryFailureIsError(t *testing.T) {
	f := newFixture(t)
	f.registry.createErr = errors.New("registry down")

	err := f.svc.HandleCheckoutCompleted(context.Background(), models.CheckoutSession{
		Email: "kim@example.com", Plan: "pro", SubscriptionID: "sub_3",
	})
	require.Error(t, err, "a lost record orphans the payment")
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	f := newFixture(t)
	keyID := "key-token-9"
	f.registry.bySub["sub_9"] = &models.Instance{ID: "inst-9", InstanceName: "moes-x", LiteLLMKeyID: &keyID}

	require.NoError(t, f.svc.HandleSubscriptionDeleted(context.Background(), "sub_9"))

	assert.Equal(t, []string{"key-token-9"}, f.issuer.revoked)
	patch, ok := f.registry.patches["inst-9"]
	require.True(t, ok)
	require.NotNil(t, patch.Status)
	assert.Equal(t, models.StatusTerminated, *patch.Status)
}

func TestHandleSubscriptionDeletedUnknownIsNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.HandleSubscriptionDeleted(context.Background(), "sub_unknown"))
	assert.Empty(t, f.issuer.revoked)
	assert.Empty(t, f.registry.patches)
}

func TestHandlePaymentFailedSuspends(t *testing.T) {
	f := newFixture(t)
	f.registry.bySub["sub_4"] = &models.Instance{ID: "inst-4", InstanceName: "moes-y"}

	require.NoError(t, f.svc.HandlePaymentFailed(context.Background(), "sub_4"))

	patch, ok := f.registry.patches["inst-4"]
	require.True(t, ok)
	require.NotNil(t, patch.Status)
	assert.Equal(t, models.StatusSuspended, *patch.Status)
}

func TestSuspendInstanceNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SuspendInstance(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInstanceRevokesAndDeletes(t *testing.T) {
	f := newFixture(t)
	keyID := "key-token-5"
	f.registry.instances["inst-5"] = &models.Instance{ID: "inst-5", LiteLLMKeyID: &keyID}

	require.NoError(t, f.svc.DeleteInstance(context.Background(), "inst-5"))
	assert.Equal(t, []string{"key-token-5"}, f.issuer.revoked)
	assert.Equal(t, []string{"inst-5"}, f.registry.deleted)
}

func TestDeleteInstanceNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.DeleteInstance(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.registry.deleted)
}

func TestInstanceUsage(t *testing.T) {
	f := newFixture(t)
	keyID := "key-token-6"
	f.registry.instances["inst-6"] = &models.Instance{ID: "inst-6", LiteLLMKeyID: &keyID}
	f.issuer.usage = &client.KeyUsage{Spend: 12.5}

	usage, err := f.svc.InstanceUsage(context.Background(), "inst-6")
	require.NoError(t, err)
	assert.Equal(t, 12.5, usage.Spend)
}

func TestInstanceUsageWithoutIssuedKeyIsZero(t *testing.T) {
	f := newFixture(t)
	f.registry.instances["inst-7"] = &models.Instance{ID: "inst-7"}

	usage, err := f.svc.InstanceUsage(context.Background(), "inst-7")
	require.NoError(t, err)
	assert.Zero(t, usage.Spend)
}
