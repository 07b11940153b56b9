package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moes-ai/provisioning-service/internal/client"
	"github.com/moes-ai/provisioning-service/internal/compute"
	"github.com/moes-ai/provisioning-service/internal/config"
	"github.com/moes-ai/provisioning-service/internal/http"
	"github.com/moes-ai/provisioning-service/internal/notify"
	"github.com/moes-ai/provisioning-service/internal/security"
	"github.com/moes-ai/provisioning-service/internal/service"
)

func main() {
	log.Println("Starting Provisioning Service...")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cipher, err := security.NewCipher(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("Failed to initialize encryption: %v", err)
	}

	// Initialize clients
	litellmClient := client.NewLiteLLMClient(
		cfg.LiteLLM.URL,
		cfg.LiteLLM.MasterKey,
		cfg.Plans.Budgets,
		cfg.Plans.Models,
		cfg.Plans.Fallback,
	)

	registryClient := client.NewRegistryClient(cfg.Registry.URL, cfg.Registry.ServiceKey)

	billingClient := client.NewBillingClient(cfg.Stripe.SecretKey, cfg.Stripe.SiteURL)

	notifier := notify.NewNotifier(cfg.Email.APIKey, cfg.Email.FromAddress)

	provisioner, err := compute.NewProvisioner(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize compute provisioner: %v", err)
	}

	// Initialize services
	provisionService := service.NewProvisionService(
		cfg,
		litellmClient,
		provisioner,
		registryClient,
		notifier,
		cipher,
	)

	// Initialize HTTP server
	server := http.NewServer(cfg, provisionService, billingClient)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	_, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Server exited")
}
