package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/handler"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/service"
)

type mockDocumentService struct {
	lastActor   service.Actor
	lastCreate  dto.DocumentCreateRequest
	lastUpdate  dto.DocumentUpdateRequest
	lastList    dto.DocumentListRequest
	lastQuery   string
	highlighted bool
	err         error
}

func (m *mockDocumentService) Create(_ context.Context, actor service.Actor, req dto.DocumentCreateRequest) (dto.DocumentResponse, error) {
	m.lastActor = actor
	m.lastCreate = req
	if m.err != nil {
		return dto.DocumentResponse{}, m.err
	}
	return dto.DocumentResponse{ID: 1, EntityType: models.EntityRule, Title: req.Title, CreatedBy: actor.ID}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id uint) (dto.DocumentResponse, error) {
	if m.err != nil {
		return dto.DocumentResponse{}, m.err
	}
	return dto.DocumentResponse{ID: id, EntityType: models.EntityRule, Title: "Rule"}, nil
}

func (m *mockDocumentService) GetHighlighted(_ context.Context, viewer service.Actor, id uint) (dto.HighlightedDocumentResponse, error) {
	m.highlighted = true
	m.lastActor = viewer
	if m.err != nil {
		return dto.HighlightedDocumentResponse{}, m.err
	}
	return dto.HighlightedDocumentResponse{
		Document:  dto.DocumentResponse{ID: id},
		Highlight: dto.HighlightResult{HTML: `<mark class="change-highlight" data-changelog-id="3">75</mark>`, State: service.HighlightStateUnseen, ChangeLogIDs: []uint{3}, Words: []string{"75"}},
	}, nil
}

func (m *mockDocumentService) List(_ context.Context, req dto.DocumentListRequest) (dto.DocumentListResponse, error) {
	m.lastList = req
	if m.err != nil {
		return dto.DocumentListResponse{}, m.err
	}
	return dto.DocumentListResponse{Items: []dto.DocumentResponse{}, Pagination: dto.PaginationMeta{Page: 1, PageSize: 20, TotalPages: 1}}, nil
}

func (m *mockDocumentService) Search(_ context.Context, query string, page, pageSize int) (dto.DocumentListResponse, error) {
	m.lastQuery = query
	if m.err != nil {
		return dto.DocumentListResponse{}, m.err
	}
	return dto.DocumentListResponse{Items: []dto.DocumentResponse{{ID: 2, Title: "Horn rule"}}}, nil
}

func (m *mockDocumentService) Update(_ context.Context, actor service.Actor, id uint, req dto.DocumentUpdateRequest) (dto.DocumentResponse, error) {
	m.lastActor = actor
	m.lastUpdate = req
	if m.err != nil {
		return dto.DocumentResponse{}, m.err
	}
	return dto.DocumentResponse{ID: id}, nil
}

func (m *mockDocumentService) Delete(_ context.Context, actor service.Actor, id uint, req dto.DocumentDeleteRequest) error {
	m.lastActor = actor
	return m.err
}

func (m *mockDocumentService) Acknowledge(_ context.Context, viewer service.Actor, id uint) (dto.AcknowledgeResponse, error) {
	m.lastActor = viewer
	if m.err != nil {
		return dto.AcknowledgeResponse{}, m.err
	}
	return dto.AcknowledgeResponse{EntityType: models.EntityRule, EntityID: id, Updated: 2}, nil
}

func documentApp(svc service.DocumentService, userID uint, role string) *fiber.App {
	app := fiber.New()
	app.Use(withUser(userID, role))
	handler.NewDocumentHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/documents"))
	return app
}

func TestDocumentHandlerCreateAsEditor(t *testing.T) {
	svc := &mockDocumentService{}
	app := documentApp(svc, 7, "editor")

	resp := doRequest(t, app, http.MethodPost, "/api/v1/documents", `{"entity_type":"RULE","title":"Speed","reason":"new rule","notify_role":"driver"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "document created", body.Message)
	require.Equal(t, service.Actor{ID: 7, Role: "editor"}, svc.lastActor)
	require.Equal(t, "driver", svc.lastCreate.NotifyRole)
	require.Equal(t, "new rule", svc.lastCreate.Reason)
}

func TestDocumentHandlerWritesNeedEditorRole(t *testing.T) {
	svc := &mockDocumentService{}

	resp := doRequest(t, documentApp(svc, 7, "viewer"), http.MethodPut, "/api/v1/documents/3", `{"title":"x"}`)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, documentApp(svc, 0, ""), http.MethodDelete, "/api/v1/documents/3", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, service.Actor{}, svc.lastActor)
}

func TestDocumentHandlerMapsServiceErrors(t *testing.T) {
	validationErr := validator.New().Struct(dto.DocumentCreateRequest{})
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrDocumentNotFound, fiber.StatusNotFound},
		{"bad entity type", service.ErrInvalidEntityType, fiber.StatusBadRequest},
		{"validation", validationErr, fiber.StatusBadRequest},
		{"store failure", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDocumentService{err: tc.err}
			resp := doRequest(t, documentApp(svc, 7, "admin"), http.MethodPut, "/api/v1/documents/3", `{"title":"x"}`)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			if tc.status == fiber.StatusInternalServerError {
				require.Equal(t, "failed to update document", body.Message)
			}
			if tc.name == "validation" {
				require.Equal(t, "required", body.Details["EntityType"])
			}
		})
	}
}

func TestDocumentHandlerGetHighlighted(t *testing.T) {
	svc := &mockDocumentService{}
	resp := doRequest(t, documentApp(svc, 9, "viewer"), http.MethodGet, "/api/v1/documents/5?highlight=true", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.highlighted)
	require.Equal(t, uint(9), svc.lastActor.ID)

	var body envelope
	decodeResponse(t, resp, &body)
	var data dto.HighlightedDocumentResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, service.HighlightStateUnseen, data.Highlight.State)
	require.Equal(t, []uint{3}, data.Highlight.ChangeLogIDs)
}

func TestDocumentHandlerListAndSearch(t *testing.T) {
	svc := &mockDocumentService{}
	app := documentApp(svc, 9, "viewer")

	resp := doRequest(t, app, http.MethodGet, "/api/v1/documents?entity_type=manual&page=2&pageSize=5", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.DocumentListRequest{Page: 2, PageSize: 5, EntityType: "manual"}, svc.lastList)

	resp = doRequest(t, app, http.MethodGet, "/api/v1/documents?page=oops", "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/v1/documents/search?q=horn", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "horn", svc.lastQuery)
}

func TestDocumentHandlerAcknowledge(t *testing.T) {
	svc := &mockDocumentService{}
	resp := doRequest(t, documentApp(svc, 9, "viewer"), http.MethodPost, "/api/v1/documents/5/acknowledge", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var data dto.AcknowledgeResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, int64(2), data.Updated)
	require.Equal(t, uint(5), data.EntityID)

	resp = doRequest(t, documentApp(svc, 9, "viewer"), http.MethodPost, "/api/v1/documents/abc/acknowledge", "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
