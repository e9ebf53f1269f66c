package ratelimit

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRequestsPerWindow = 10
	defaultWindowSize        = time.Minute
)

// RateLimitModule guards the credential endpoints with a Redis-backed
// limiter. Without REDIS_ADDR the module stays disabled and the middleware
// passes everything through.
type RateLimitModule struct {
	client  *redis.Client
	limiter *SlidingWindowLimiter
	addr    string
	enabled bool
}

// Compile-time interface checks.
var _ mono.Module = (*RateLimitModule)(nil)
var _ mono.HealthCheckableModule = (*RateLimitModule)(nil)

// NewModule creates a new RateLimitModule.
func NewModule() *RateLimitModule {
	return &RateLimitModule{
		addr: os.Getenv("REDIS_ADDR"),
	}
}

// Name returns the module name.
func (m *RateLimitModule) Name() string {
	return "ratelimit"
}

// Start connects to Redis when an address is configured.
func (m *RateLimitModule) Start(ctx context.Context) error {
	if m.addr == "" {
		log.Println("[ratelimit] REDIS_ADDR not set, rate limiting disabled")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     m.addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	m.limiter = NewSlidingWindowLimiter(m.client, loadConfig(), "ratelimit:ip:")
	m.enabled = true

	log.Printf("[ratelimit] Module started (redis: %s)", m.addr)
	return nil
}

// Stop closes the Redis connection.
func (m *RateLimitModule) Stop(_ context.Context) error {
	if m.client != nil {
		m.client.Close()
	}
	log.Println("[ratelimit] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *RateLimitModule) Health(ctx context.Context) mono.HealthStatus {
	if !m.enabled {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}

	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis": m.addr,
		},
	}
}

// Middleware returns the handler applied to rate limited routes. The enabled
// check happens per request so the closure can be wired before Start runs.
func (m *RateLimitModule) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.enabled {
			return c.Next()
		}
		return IPRateLimit(m.limiter)(c)
	}
}

// loadConfig loads limiter settings from environment variables.
func loadConfig() Config {
	config := Config{
		RequestsPerWindow: defaultRequestsPerWindow,
		WindowSize:        defaultWindowSize,
	}

	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.RequestsPerWindow = parsed
		}
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.WindowSize = time.Duration(parsed) * time.Second
		}
	}

	return config
}
