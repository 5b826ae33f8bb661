package handlers

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/logger"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
)

// Event types sent over WebSocket
const (
	EventGoalUpdated      = "goal_updated"
	EventMilestoneUpdated = "milestone_updated"
	EventMilestoneClosed  = "milestone_closed"
	EventTaskUpdated      = "task_updated"
	EventTaskRescheduled  = "task_rescheduled"
)

// WSEvent is the JSON message sent to connected clients
type WSEvent struct {
	Type   string      `json:"type"`
	GoalID string      `json:"goalId"`
	Data   interface{} `json:"data,omitempty"`
}

// connection wraps a websocket connection with its user ID
type connection struct {
	conn   *websocket.Conn
	userID uuid.UUID
	mu     sync.Mutex
}

func (c *connection) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub fans goal events out to the owner's open clients, one room per goal.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*connection]bool
}

// Global hub instance
var WS = NewHub()

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*connection]bool)}
}

func (h *Hub) register(goalID uuid.UUID, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[goalID] == nil {
		h.rooms[goalID] = make(map[*connection]bool)
	}
	h.rooms[goalID][conn] = true
	logger.Debug("ws register", "user", conn.userID, "goal", goalID, "total", len(h.rooms[goalID]))
}

func (h *Hub) unregister(goalID uuid.UUID, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[goalID]; ok {
		delete(conns, conn)
		logger.Debug("ws unregister", "user", conn.userID, "goal", goalID, "remaining", len(conns))
		if len(conns) == 0 {
			delete(h.rooms, goalID)
		}
	}
}

// Broadcast sends an event to every connection watching the goal.
func (h *Hub) Broadcast(goalID uuid.UUID, eventType string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.rooms[goalID]
	if !ok {
		return
	}

	msg, err := json.Marshal(WSEvent{Type: eventType, GoalID: goalID.String(), Data: data})
	if err != nil {
		logger.Warn("ws broadcast marshal error", "err", err)
		return
	}
	logger.Debug("ws broadcast", "type", eventType, "goal", goalID, "connections", len(conns))

	for c := range conns {
		if err := c.write(msg); err != nil {
			logger.Debug("ws write error", "err", err)
		}
	}
}

// WebSocketUpgrade is the middleware that checks the upgrade request and validates JWT
func WebSocketUpgrade(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Authenticate via query param: ?token=<jwt>
		tokenString := c.Query("token")
		if tokenString == "" {
			// Also check Authorization header for non-browser clients
			tokenString = middleware.BearerToken(c)
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authentication token",
			})
		}

		claims, err := middleware.ParseToken(secret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		goalID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid goal ID",
			})
		}
		var count int64
		if err := database.DB.Model(&models.Goal{}).Where("id = ? AND user_id = ?", goalID, claims.UserID).Count(&count).Error; err != nil {
			logger.Error("ws: ownership check failed", "goal", goalID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check goal",
			})
		}
		if count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Goal not found",
			})
		}

		c.Locals("userId", claims.UserID)
		return c.Next()
	}
}

// HandleWebSocket handles a WebSocket connection for a specific goal
func HandleWebSocket(c *websocket.Conn) {
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		c.Close()
		return
	}

	userID, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		c.Close()
		return
	}

	conn := &connection{conn: c, userID: userID}
	WS.register(goalID, conn)
	defer WS.unregister(goalID, conn)

	// Keep connection alive: read messages (client sends pings/keepalives)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
