package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/moes-ai/provisioning-service/internal/models"
)

// StripeWebhook handles POST /api/webhooks/stripe
// Signature verification is the only authentication on this route.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing signature"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sig, h.webhookSecret)
	if err != nil {
		log.Printf("[Webhook] Signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if err := h.handleStripeEvent(c, event); err != nil {
		log.Printf("[Webhook] Handling %s failed: %v", event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook handler error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) handleStripeEvent(c *gin.Context, event stripe.Event) error {
	ctx := c.Request.Context()

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}
		return h.provisionService.HandleCheckoutCompleted(ctx, checkoutSessionFromStripe(&sess))

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return h.provisionService.HandleSubscriptionDeleted(ctx, sub.ID)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Subscription == nil {
			log.Printf("[Webhook] Payment failure without subscription, ignoring")
			return nil
		}
		return h.provisionService.HandlePaymentFailed(ctx, inv.Subscription.ID)

	default:
		log.Printf("[Webhook] Ignoring event type %s", event.Type)
		return nil
	}
}

func checkoutSessionFromStripe(sess *stripe.CheckoutSession) models.CheckoutSession {
	out := models.CheckoutSession{
		Email: sess.CustomerEmail,
		Plan:  models.PlanStarter,
	}
	if out.Email == "" && sess.CustomerDetails != nil {
		out.Email = sess.CustomerDetails.Email
	}
	if plan := sess.Metadata["plan"]; plan != "" {
		out.Plan = plan
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}
