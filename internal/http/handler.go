// Package http exposes the provisioning, checkout, webhook, and admin
// endpoints.
package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moes-ai/provisioning-service/internal/models"
	"github.com/moes-ai/provisioning-service/internal/service"
)

// CheckoutCreator starts a hosted payment session for a plan.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, plan, email, interval string) (string, error)
}

type Handler struct {
	provisionService *service.ProvisionService
	checkout         CheckoutCreator
	webhookSecret    string
}

func NewHandler(provisionService *service.ProvisionService, checkout CheckoutCreator, webhookSecret string) *Handler {
	return &Handler{
		provisionService: provisionService,
		checkout:         checkout,
		webhookSecret:    webhookSecret,
	}
}

// Provision handles POST /api/provision
func (h *Handler) Provision(c *gin.Context) {
	var req models.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: name, email, plan"})
		return
	}

	result, err := h.provisionService.ProvisionDirect(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoCredential) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No API key configured"})
			return
		}
		log.Printf("[Handler] Provisioning failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Provisioning failed",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ProvisionResponse{
		Success:      true,
		InstanceName: result.InstanceName,
		IP:           result.ExternalIP,
		Token:        result.GatewayToken,
		DashboardURL: result.DashboardURL,
		Warnings:     result.Warnings,
	})
}

// CreateCheckout handles POST /api/checkout
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Plan == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan and email are required"})
		return
	}
	// Enterprise is sales-led; only self-serve plans check out here.
	if req.Plan != models.PlanStarter && req.Plan != models.PlanPro {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan. Use 'starter' or 'pro'."})
		return
	}

	interval := "month"
	if req.Interval == "year" {
		interval = "year"
	}

	url, err := h.checkout.CreateCheckoutSession(c.Request.Context(), req.Plan, req.Email, interval)
	if err != nil {
		log.Printf("[Handler] Checkout session failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListInstances handles GET /api/admin/instances
func (h *Handler) ListInstances(c *gin.Context) {
	instances, err := h.provisionService.ListInstances(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list instances"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instances": instances})
}

// SuspendInstance handles POST /api/admin/instances/:id/suspend
func (h *Handler) SuspendInstance(c *gin.Context) {
	inst, err := h.provisionService.SuspendInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to suspend instance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instance": inst})
}

// DeleteInstance handles DELETE /api/admin/instances/:id
func (h *Handler) DeleteInstance(c *gin.Context) {
	if err := h.provisionService.DeleteInstance(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete instance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// InstanceUsage handles GET /api/admin/instances/:id/usage
func (h *Handler) InstanceUsage(c *gin.Context) {
	usage, err := h.provisionService.InstanceUsage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"spend":      usage.Spend,
		"max_budget": usage.MaxBudget,
	})
}
