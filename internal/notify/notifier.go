// Package notify sends customer-facing transactional email through Resend.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const onboardingSubject = "Your Moe's AI assistant is ready!"

// Notifier sends onboarding email. Failures here never undo a completed
// provision; callers treat them as warnings.
type Notifier struct {
	client *resend.Client
	from   string
}

func NewNotifier(apiKey, from string) *Notifier {
	return &Notifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// OnboardingEmail carries everything the welcome email shows the customer.
// GatewayToken appears once here and is otherwise unrecoverable.
type OnboardingEmail struct {
	RecipientEmail string
	RecipientName  string
	DashboardURL   string
	GatewayToken   string
	InstanceIP     string
	Plan           string
}

// SendOnboarding renders and sends the welcome email with the dashboard
// link and access token.
func (n *Notifier) SendOnboarding(ctx context.Context, email OnboardingEmail) error {
	firstName := firstWord(email.RecipientName)
	if firstName == "" {
		firstName = "there"
	}

	var html bytes.Buffer
	err := onboardingTemplate.Execute(&html, struct {
		FirstName    string
		Plan         string
		DashboardURL string
		GatewayToken string
		InstanceIP   string
		Year         int
	}{
		FirstName:    firstName,
		Plan:         email.Plan,
		DashboardURL: email.DashboardURL,
		GatewayToken: email.GatewayToken,
		InstanceIP:   email.InstanceIP,
		Year:         time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("render onboarding email: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{email.RecipientEmail},
		Subject: onboardingSubject,
		Html:    html.String(),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send onboarding email: %w", err)
	}

	log.Printf("[Notify] Onboarding email sent to %s", email.RecipientEmail)
	return nil
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
