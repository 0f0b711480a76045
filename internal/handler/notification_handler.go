package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/middleware"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/service"
	"github.com/noah-isme/railrules-api/internal/utils"
)

// NotificationHandler manages notification streams and inbox operations.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
	timeout time.Duration
}

// socketEnvelope is the frame sent to websocket clients.
type socketEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// socketCommand is a frame received from websocket clients. Clicking a
// highlighted change sends {"type":"acknowledge","entity_type":..,"entity_id":..}.
type socketCommand struct {
	Type       string `json:"type"`
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
}

// NewNotificationHandler constructs a handler instance. timeout is the
// keep-alive window of open streams.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
		timeout: timeout,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/", h.list)
	router.Post("/", middleware.RequireRole("editor", "admin"), h.publish)
	router.Get("/unread-count", h.unreadCount)
	router.Get("/stream", h.stream)
	router.Get("/ws", websocket.New(h.socket))
	router.Patch("/read", h.markReadBulk)
	router.Patch("/entity/:entityType/:entityId/read", h.markEntityRead)
	router.Patch("/:id/read", h.markRead)
	router.Delete("/", h.deleteAll)
	router.Delete("/:id", h.delete)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}
	unreadOnly, _ := strconv.ParseBool(strings.TrimSpace(c.Query("unread_only")))

	notifications, err := h.service.List(requestContext(c), userID, dto.NotificationListQuery{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) publish(c *fiber.Ctx) error {
	var payload dto.NotificationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	notification, err := h.service.Publish(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "publish notification")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "notification published", notification)
}

func (h *NotificationHandler) unreadCount(c *fiber.Ctx) error {
	count, err := h.service.UnreadCount(requestContext(c), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "count notifications")
	}
	return utils.SendSuccess(c, "unread notifications", count)
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	stream, cleanup := h.service.Subscribe(userID)
	keepAlive := h.keepAliveInterval()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-stream:
				if !ok {
					return
				}
				if err := writeNotificationEvent(w, notification); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *NotificationHandler) socket(conn *websocket.Conn) {
	userID := normalizeUserID(conn.Locals("user_id"))
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	stream, cleanup := h.service.Subscribe(userID)
	defer cleanup()

	logger := h.logger.With().Uint("user_id", userID).Logger()
	logger.Info().Msg("notification websocket connected")
	defer logger.Info().Msg("notification websocket disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var command socketCommand
			if err := conn.ReadJSON(&command); err != nil {
				return
			}
			h.handleSocketCommand(ctx, userID, command, logger)
		}
	}()

	ticker := time.NewTicker(h.keepAliveInterval())
	defer ticker.Stop()

	for {
		select {
		case notification, ok := <-stream:
			if !ok {
				return
			}
			if err := conn.WriteJSON(socketEnvelope{Event: "notification", Data: notification}); err != nil {
				logger.Debug().Err(err).Msg("failed to write notification frame")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *NotificationHandler) handleSocketCommand(ctx context.Context, userID uint, command socketCommand, logger zerolog.Logger) {
	if !strings.EqualFold(command.Type, "acknowledge") {
		logger.Debug().Str("type", command.Type).Msg("ignoring unknown websocket command")
		return
	}

	entityType, ok := models.ParseEntityType(command.EntityType)
	if !ok || command.EntityID == 0 {
		logger.Debug().Str("entity_type", command.EntityType).Msg("ignoring malformed acknowledge command")
		return
	}

	if _, err := h.service.Acknowledge(ctx, userID, entityType, command.EntityID); err != nil {
		logger.Warn().Err(err).Msg("failed to acknowledge changes over websocket")
	}
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update notification")
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markReadBulk(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.NotificationBulkReadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.MarkReadBulk(requestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update notifications")
	}

	return utils.SendSuccess(c, "notifications updated", result)
}

func (h *NotificationHandler) markEntityRead(c *fiber.Ctx) error {
	entityType, ok := models.ParseEntityType(c.Params("entityType"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrInvalidEntityType.Error())
	}
	entityID, err := parseUintParam(c, "entityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}

	updated, err := h.service.Acknowledge(requestContext(c), userIDFromContext(c), entityType, entityID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "acknowledge changes")
	}

	return utils.SendSuccess(c, "changes acknowledged", dto.AcknowledgeResponse{
		EntityType: entityType,
		EntityID:   entityID,
		Updated:    updated,
	})
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	if err := h.service.Delete(requestContext(c), id, userID); err != nil {
		return sendServiceError(c, h.logger, err, "delete notification")
	}

	return utils.SendSuccess(c, "notification deleted", fiber.Map{"id": id})
}

func (h *NotificationHandler) deleteAll(c *fiber.Ctx) error {
	result, err := h.service.DeleteAll(requestContext(c), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "delete notifications")
	}
	return utils.SendSuccess(c, "notifications deleted", result)
}

func (h *NotificationHandler) keepAliveInterval() time.Duration {
	if h.timeout <= 0 {
		return 15 * time.Second
	}
	return h.timeout / 2
}

func writeNotificationEvent(w *bufio.Writer, notification interface{}) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: notification\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
