package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/middleware"
	"github.com/noah-isme/railrules-api/internal/service"
	"github.com/noah-isme/railrules-api/internal/utils"
)

// DocumentHandler exposes rules, manuals and the other tracked documents.
type DocumentHandler struct {
	service service.DocumentService
	logger  zerolog.Logger
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service service.DocumentService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger.With().Str("component", "document_handler").Logger(),
	}
}

// Register binds the document routes. Writes need the editor or admin role.
func (h *DocumentHandler) Register(router fiber.Router) {
	editorOnly := middleware.AuthOptions{Role: middleware.AuthRoleEditor}

	router.Get("/", h.list)
	router.Get("/search", middleware.RateLimit("document_search", 30, time.Minute), h.search)
	router.Get("/:id", h.get)
	router.Post("/", middleware.WithAuth(h.create, editorOnly))
	router.Put("/:id", middleware.WithAuth(h.update, editorOnly))
	router.Delete("/:id", middleware.WithAuth(h.delete, editorOnly))
	router.Post("/:id/acknowledge", middleware.WithAuth(h.acknowledge, middleware.AuthOptions{RequireUser: true}))
}

func (h *DocumentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.DocumentListRequest{
		Page:       page,
		PageSize:   pageSize,
		EntityType: c.Query("entity_type"),
	}
	result, err := h.service.List(requestContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "list documents")
	}

	return utils.OK(c, result, "documents retrieved", fiber.Map{"filters": fiber.Map{"entity_type": req.EntityType}})
}

func (h *DocumentHandler) search(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Search(requestContext(c), c.Query("q"), page, pageSize)
	if err != nil {
		return sendServiceError(c, h.logger, err, "search documents")
	}

	return utils.SendSuccess(c, "documents found", result)
}

func (h *DocumentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document id")
	}

	if strings.EqualFold(c.Query("highlight"), "true") {
		result, err := h.service.GetHighlighted(requestContext(c), actorFromContext(c), id)
		if err != nil {
			return sendServiceError(c, h.logger, err, "load document")
		}
		return utils.SendSuccess(c, "document retrieved", result)
	}

	document, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "load document")
	}

	return utils.SendSuccess(c, "document retrieved", document)
}

func (h *DocumentHandler) create(c *fiber.Ctx) error {
	var payload dto.DocumentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	document, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "create document")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document created", document)
}

func (h *DocumentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document id")
	}

	var payload dto.DocumentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	document, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update document")
	}

	return utils.SendSuccess(c, "document updated", document)
}

func (h *DocumentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document id")
	}

	var payload dto.DocumentDeleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id, payload); err != nil {
		return sendServiceError(c, h.logger, err, "delete document")
	}

	return utils.SendSuccess(c, "document deleted", fiber.Map{"id": id})
}

func (h *DocumentHandler) acknowledge(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document id")
	}

	result, err := h.service.Acknowledge(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "acknowledge changes")
	}

	return utils.SendSuccess(c, "changes acknowledged", result)
}
