package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moes-ai/provisioning-service/internal/config"
	"github.com/moes-ai/provisioning-service/internal/service"
)

// RateLimiter is a simple in-memory sliding-window limiter.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether a request under this key fits the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Checkout is public and payment-free, so it gets a per-IP limiter.
var checkoutRateLimiter = NewRateLimiter(10, time.Minute)

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

func NewServer(cfg *config.Config, provisionService *service.ProvisionService, checkout CheckoutCreator) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(RequestIDMiddleware())

	handler := NewHandler(provisionService, checkout, cfg.Stripe.WebhookSecret)

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "provisioning-service",
		})
	})

	api := s.router.Group("/api")
	{
		// Provisioning - called by trusted automation with the API secret
		api.POST("/provision", BearerAuthMiddleware(s.cfg.Auth.APISecret), s.handler.Provision)

		// Checkout - public, rate limited per IP
		api.POST("/checkout", RateLimitMiddleware(checkoutRateLimiter), s.handler.CreateCheckout)

		// Stripe webhooks - authenticated by signature, not bearer token
		api.POST("/webhooks/stripe", s.handler.StripeWebhook)
	}

	admin := s.router.Group("/api/admin")
	admin.Use(BearerAuthMiddleware(s.cfg.Auth.AdminSecret))
	{
		admin.GET("/instances", s.handler.ListInstances)
		admin.POST("/instances/:id/suspend", s.handler.SuspendInstance)
		admin.DELETE("/instances/:id", s.handler.DeleteInstance)
		admin.GET("/instances/:id/usage", s.handler.InstanceUsage)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
