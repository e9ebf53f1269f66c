package api

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	domain "github.com/example/chatflow/domain/user"
	"github.com/example/chatflow/modules/auth"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	api := m.app.Group("/api")

	// Public endpoints, rate limited when a limiter is configured
	if m.rateLimiter != nil {
		api.Post("/register", m.rateLimiter, m.register)
		api.Post("/login", m.rateLimiter, m.login)
	} else {
		api.Post("/register", m.register)
		api.Post("/login", m.login)
	}

	// Protected endpoints
	protected := api.Group("", AuthMiddleware(m.authAdapter))
	protected.Get("/rooms", m.listRooms)
	protected.Post("/rooms", m.createRoom)
	protected.Get("/messages/direct/:userId", m.directHistory)
	protected.Get("/messages/:roomId", m.roomHistory)
	protected.Get("/users", m.listUsers)
	protected.Get("/search/users", m.searchUsers)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ConnectionCount(),
		},
	})
}

// register handles POST /api/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username, email and password are required",
		})
	}

	authReq := auth.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
	}
	var resp auth.RegisterResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		m.authContainer,
		"register",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return m.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Token: resp.Token,
		User:  resp.User,
	})
}

// login handles POST /api/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	authReq := auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.LoginResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		m.authContainer,
		"login",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return m.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(AuthResponse{
		Token: resp.Token,
		User:  resp.User,
	})
}

// listRooms handles GET /api/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	claims := c.Locals(UserContextKey).(*domain.Claims)

	rooms, err := m.chatAdapter.ListRoomsFor(c.UserContext(), claims.UserID)
	if err != nil {
		log.Printf("[api] Failed to list rooms: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list rooms",
		})
	}

	return c.JSON(rooms)
}

// createRoom handles POST /api/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	claims := c.Locals(UserContextKey).(*domain.Claims)

	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Room name is required",
		})
	}

	room, err := m.chatAdapter.CreateRoom(c.UserContext(), req.Name, req.Description, req.IsPrivate, claims.UserID)
	if err != nil {
		if strings.Contains(err.Error(), "maximum length") {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "validation_error",
				Message: "Room name too long (max 100 characters)",
			})
		}
		log.Printf("[api] Failed to create room: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create room",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(room)
}

// roomHistory handles GET /api/messages/:roomId.
func (m *APIModule) roomHistory(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	limit := historyLimit(c)

	messages, err := m.chatAdapter.RoomHistory(c.UserContext(), roomID, limit)
	if err != nil {
		if strings.Contains(err.Error(), "room not found") {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Room not found",
			})
		}
		log.Printf("[api] Failed to load room history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load messages",
		})
	}

	return c.JSON(messages)
}

// directHistory handles GET /api/messages/direct/:userId.
func (m *APIModule) directHistory(c *fiber.Ctx) error {
	claims := c.Locals(UserContextKey).(*domain.Claims)
	otherID := c.Params("userId")
	limit := historyLimit(c)

	messages, err := m.chatAdapter.DirectHistory(c.UserContext(), claims.UserID, otherID, limit)
	if err != nil {
		log.Printf("[api] Failed to load direct history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load messages",
		})
	}

	return c.JSON(messages)
}

// listUsers handles GET /api/users.
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	claims := c.Locals(UserContextKey).(*domain.Claims)

	users, err := m.authAdapter.ListUsers(c.UserContext(), claims.UserID)
	if err != nil {
		log.Printf("[api] Failed to list users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list users",
		})
	}

	return c.JSON(users)
}

// searchUsers handles GET /api/search/users?query=...
func (m *APIModule) searchUsers(c *fiber.Ctx) error {
	claims := c.Locals(UserContextKey).(*domain.Claims)
	query := c.Query("query")

	users, err := m.authAdapter.SearchUsers(c.UserContext(), query, claims.UserID)
	if err != nil {
		log.Printf("[api] Failed to search users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to search users",
		})
	}

	return c.JSON(users)
}

// historyLimit parses the limit query parameter.
func historyLimit(c *fiber.Ctx) int {
	limit := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}

// handleAuthError maps auth service errors onto HTTP responses. Errors cross
// the container boundary as strings, so matching is on known messages.
func (m *APIModule) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid credentials"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid credentials",
		})
	case strings.Contains(errStr, "already exists"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "duplicate_identity",
			Message: "User already exists with this username, email, or mobile number",
		})
	case strings.Contains(errStr, "invalid email format"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid email format",
		})
	case strings.Contains(errStr, "username is required"),
		strings.Contains(errStr, "username exceeds"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid username",
		})
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Password must be at least 8 characters",
		})
	case strings.Contains(errStr, "password must be at most"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Password must be at most 72 characters",
		})
	case strings.Contains(errStr, "user not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User not found",
		})
	default:
		// Log the actual error but don't expose it to the client
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
