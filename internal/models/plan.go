package models

// Plan identifiers
const (
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Plan describes a purchasable subscription tier. Prices are in cents;
// annual pricing is ten months for the price of twelve.
type Plan struct {
	Name         string
	MonthlyPrice int64
	AnnualPrice  int64
	Features     []string
}

// Plans is the purchasable plan catalog. Enterprise is sales-led and has no
// self-serve price.
var Plans = map[string]Plan{
	PlanStarter: {
		Name:         "Starter",
		MonthlyPrice: 2900,
		AnnualPrice:  29000,
		Features: []string{
			"1 AI assistant instance",
			"WhatsApp channel",
			"10GB storage",
			"Community support",
		},
	},
	PlanPro: {
		Name:         "Pro",
		MonthlyPrice: 7900,
		AnnualPrice:  79000,
		Features: []string{
			"1 AI assistant instance",
			"All channels (WhatsApp, Telegram, Discord, Slack)",
			"50GB storage",
			"Priority support",
			"Custom personality & skills",
		},
	},
	PlanEnterprise: {
		Name: "Enterprise",
		Features: []string{
			"Unlimited instances",
			"All channels",
			"Unlimited storage",
			"Dedicated support",
			"Custom integrations",
			"SLA guarantee",
		},
	},
}

// ModelForPlan returns the model identifier assigned to an instance of the
// given plan.
func ModelForPlan(plan string) string {
	if plan == PlanStarter {
		return "anthropic/claude-haiku-4-5"
	}
	return "anthropic/claude-sonnet-4-6"
}
