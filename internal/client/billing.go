package client

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/moes-ai/provisioning-service/internal/models"
)

// BillingClient creates Stripe checkout sessions for self-serve plans.
// Prices are defined inline per session, so no pre-created Stripe products
// are required.
type BillingClient struct {
	siteURL string
}

func NewBillingClient(secretKey, siteURL string) *BillingClient {
	stripe.Key = secretKey
	return &BillingClient{siteURL: siteURL}
}

// CreateCheckoutSession starts a subscription checkout for a plan and
// returns the hosted payment page URL. interval is "month" or "year".
func (c *BillingClient) CreateCheckoutSession(ctx context.Context, plan, email, interval string) (string, error) {
	planCfg, ok := models.Plans[plan]
	if !ok {
		return "", fmt.Errorf("unknown plan: %s", plan)
	}

	unitAmount := planCfg.MonthlyPrice
	if interval == "year" {
		unitAmount = planCfg.AnnualPrice
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Moe's AI — " + planCfg.Name),
						Description: stripe.String(strings.Join(planCfg.Features, ", ")),
					},
					UnitAmount: stripe.Int64(unitAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.siteURL + "/pricing?success=true"),
		CancelURL:  stripe.String(c.siteURL + "/pricing?canceled=true"),
	}
	params.Context = ctx
	params.AddMetadata("plan", plan)

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	log.Printf("[Billing] Checkout session created for %s (plan: %s, interval: %s)", email, plan, interval)
	return s.URL, nil
}
