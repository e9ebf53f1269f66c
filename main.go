package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/chatflow/modules/api"
	"github.com/example/chatflow/modules/auth"
	"github.com/example/chatflow/modules/chat"
	"github.com/example/chatflow/modules/ratelimit"
	"github.com/example/chatflow/modules/router"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== ChatFlow - Real-Time Chat Server ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	authModule := auth.NewModule()
	chatModule := chat.NewModule()
	routerModule := router.NewModule()
	rateLimitModule := ratelimit.NewModule()
	apiModule := api.NewModule()

	// The hub and the onboarding scheduler live outside the service
	// container, so the API module gets them injected directly.
	apiModule.SetHub(routerModule.Hub())
	apiModule.SetWelcome(routerModule.Welcome())
	apiModule.SetRateLimiter(rateLimitModule.Middleware())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: identity directory + credentials (ServiceProviderModule)
	// - chat: rooms, messages, receipts (ServiceProviderModule + EventEmitterModule)
	// - router: fanout of chat events to live connections (EventConsumerModule)
	// - ratelimit: Redis-backed limiter for the credential endpoints
	// - api: Fiber HTTP/WebSocket surface (depends on auth and chat)
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(routerModule)
	app.Register(rateLimitModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  POST   /api/register                - Create an account")
	log.Println("  POST   /api/login                   - Log in (email or username)")
	log.Println("  GET    /api/rooms                   - List your rooms")
	log.Println("  POST   /api/rooms                   - Create a room")
	log.Println("  GET    /api/messages/:roomId        - Room message history")
	log.Println("  GET    /api/messages/direct/:userId - Direct message history")
	log.Println("  GET    /api/users                   - List other users")
	log.Println("  GET    /api/search/users?query=     - Search users")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Events: join, joinRoom, leaveRoom, sendMessage, messageRead, typing")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
