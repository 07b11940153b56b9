// Package compute creates the customer VM on Google Compute Engine and
// waits for it to become reachable.
package compute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	gce "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/moes-ai/provisioning-service/internal/config"
	"github.com/moes-ai/provisioning-service/internal/poll"
	"github.com/moes-ai/provisioning-service/internal/security"
)

var (
	// ErrOperationTimeout means the create operation never reached DONE
	// within the configured window.
	ErrOperationTimeout = errors.New("timed out waiting for create operation")

	// ErrAddressTimeout means the VM never reported an external address
	// within the configured window.
	ErrAddressTimeout = errors.New("timed out waiting for external address")
)

// Provisioner creates gateway VMs. Each Provision call creates one billable
// cloud resource; a VM created before a later failure is NOT rolled back
// automatically and must be cleaned up by an operator.
type Provisioner struct {
	cfg *config.Config
	svc *gce.Service
}

// NewProvisioner builds a provisioner authenticated with the configured
// service account. Extra client options override the default credentials
// (used by tests to point at a fake API).
func NewProvisioner(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Provisioner, error) {
	if len(opts) == 0 {
		if cfg.GCP.CredentialsJSON == "" {
			return nil, errors.New("GCP service account credentials are required")
		}
		opts = []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.GCP.CredentialsJSON))}
	}

	svc, err := gce.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create compute service: %w", err)
	}

	return &Provisioner{cfg: cfg, svc: svc}, nil
}

// Result describes a successfully provisioned VM. GatewayToken is the
// credential embedded in the VM's own configuration; it is what the
// customer uses to log in and is never persisted in recoverable form.
type Result struct {
	InstanceName string
	ExternalIP   string
	GatewayToken string
	DashboardURL string
}

// Provision creates the VM and blocks until it has a routable address.
func (p *Provisioner) Provision(ctx context.Context, instanceName, apiKey string) (*Result, error) {
	gatewayToken, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	script, err := buildStartupScript(gatewayToken, apiKey)
	if err != nil {
		return nil, err
	}

	gcp := p.cfg.GCP
	inst := &gce.Instance{
		Name:        instanceName,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", gcp.Zone, gcp.MachineType),
		Tags:        &gce.Tags{Items: []string{gcp.NetworkTag}},
		Disks: []*gce.AttachedDisk{
			{
				Boot:       true,
				AutoDelete: true,
				InitializeParams: &gce.AttachedDiskInitializeParams{
					DiskSizeGb:  gcp.DiskSizeGB,
					SourceImage: gcp.SourceImage,
				},
			},
		},
		NetworkInterfaces: []*gce.NetworkInterface{
			{
				AccessConfigs: []*gce.AccessConfig{
					{
						Name: "External NAT",
						Type: "ONE_TO_ONE_NAT",
					},
				},
			},
		},
		Metadata: &gce.Metadata{
			Items: []*gce.MetadataItems{
				{Key: "startup-script", Value: &script},
			},
		},
	}

	log.Printf("[Compute] Creating instance %s (%s in %s)", instanceName, gcp.MachineType, gcp.Zone)

	op, err := p.svc.Instances.Insert(gcp.ProjectID, gcp.Zone, inst).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}

	if op.Status != "DONE" {
		if err := p.waitForOperation(ctx, op.Name); err != nil {
			return nil, err
		}
	} else if err := operationError(op); err != nil {
		return nil, err
	}

	ip, err := p.waitForExternalIP(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	log.Printf("[Compute] Instance %s ready at %s", instanceName, ip)

	return &Result{
		InstanceName: instanceName,
		ExternalIP:   ip,
		GatewayToken: gatewayToken,
		DashboardURL: fmt.Sprintf("http://%s:%d", ip, gcp.DashboardPort),
	}, nil
}

func (p *Provisioner) waitForOperation(ctx context.Context, operationName string) error {
	gcp := p.cfg.GCP
	err := poll.Wait(ctx, gcp.PollInterval, gcp.OperationTimeout, func(ctx context.Context) (bool, error) {
		op, err := p.svc.ZoneOperations.Get(gcp.ProjectID, gcp.Zone, operationName).Context(ctx).Do()
		if err != nil {
			return false, fmt.Errorf("get operation: %w", err)
		}
		if op.Status != "DONE" {
			return false, nil
		}
		if err := operationError(op); err != nil {
			return false, err
		}
		return true, nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		return ErrOperationTimeout
	}
	return err
}

func (p *Provisioner) waitForExternalIP(ctx context.Context, instanceName string) (string, error) {
	gcp := p.cfg.GCP
	var ip string
	err := poll.Wait(ctx, gcp.PollInterval, gcp.AddressTimeout, func(ctx context.Context) (bool, error) {
		inst, err := p.svc.Instances.Get(gcp.ProjectID, gcp.Zone, instanceName).Context(ctx).Do()
		if err != nil {
			return false, fmt.Errorf("get instance: %w", err)
		}
		ip = externalIP(inst)
		return ip != "", nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		return "", ErrAddressTimeout
	}
	return ip, err
}

func externalIP(inst *gce.Instance) string {
	for _, ni := range inst.NetworkInterfaces {
		for _, ac := range ni.AccessConfigs {
			if ac.NatIP != "" {
				return ac.NatIP
			}
		}
	}
	return ""
}

func operationError(op *gce.Operation) error {
	if op.Error == nil || len(op.Error.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(op.Error.Errors))
	for _, e := range op.Error.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("instance create operation failed: %s", strings.Join(msgs, ", "))
}
