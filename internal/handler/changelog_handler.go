package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/service"
	"github.com/noah-isme/railrules-api/internal/utils"
)

// ChangeLogHandler serves the read-only change audit trail.
type ChangeLogHandler struct {
	service service.ChangeLogService
	logger  zerolog.Logger
}

// NewChangeLogHandler constructs the handler.
func NewChangeLogHandler(service service.ChangeLogService, logger zerolog.Logger) *ChangeLogHandler {
	return &ChangeLogHandler{
		service: service,
		logger:  logger.With().Str("component", "changelog_handler").Logger(),
	}
}

// Register attaches routes.
func (h *ChangeLogHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

func (h *ChangeLogHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}
	authorID, err := parseQueryUint(c, "author_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid author id")
	}

	req := dto.ChangeLogListRequest{
		Page:       page,
		PageSize:   pageSize,
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		Action:     c.Query("action"),
		AuthorID:   authorID,
	}
	result, err := h.service.List(requestContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "list change logs")
	}

	filters := fiber.Map{"entity_type": req.EntityType, "action": req.Action}
	if req.EntityID > 0 {
		filters["entity_id"] = req.EntityID
	}
	if req.AuthorID > 0 {
		filters["author_id"] = req.AuthorID
	}
	return utils.OK(c, result, "change logs retrieved", fiber.Map{"filters": filters})
}

func (h *ChangeLogHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid change log id")
	}

	entry, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "load change log")
	}

	return utils.SendSuccess(c, "change log retrieved", entry)
}
