package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/api/dto"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/service"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// RequestsHandler exposes the request lifecycle.
type RequestsHandler struct {
	service *service.RequestService
	now     func() time.Time
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService, now: time.Now}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.CategoryID == "" {
		return apperrors.NewValidationError("client_id and category_id required", nil)
	}

	created, err := h.service.Create(c.UserContext(), service.RequestCreateInput{
		ClientID:         req.ClientID,
		CategoryID:       req.CategoryID,
		Area:             req.Area,
		Description:      req.Description,
		ExtraDescription: req.ExtraDescription,
		Cost:             req.Cost,
	}, actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created, h.now())})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter, err := parseRequestFilter(c)
	if err != nil {
		return err
	}
	requests, err := h.service.List(c.UserContext(), filter, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(requests)})
}

// ListPending GET /requests/pending.
func (h *RequestsHandler) ListPending(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var area *domain.Area
	if raw := c.Query("area"); raw != "" {
		parsed, err := domain.ParseArea(strings.ToUpper(raw))
		if err != nil {
			return apperrors.NewValidationError("invalid area", map[string]any{"area": raw})
		}
		area = &parsed
	}
	limit, offset := pagination(c)
	requests, err := h.service.ListPending(c.UserContext(), area, limit, offset, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(requests)})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	req, err := h.service.GetByID(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req, h.now())})
}

// TimeSpent GET /requests/:id/time.
func (h *RequestsHandler) TimeSpent(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	snap, err := h.service.GetTimeSpent(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snap})
}

// Audit GET /requests/:id/audit.
func (h *RequestsHandler) Audit(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListAudit(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewAuditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Accept POST /requests/:id/accept.
func (h *RequestsHandler) Accept(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Accept)
}

// Pause POST /requests/:id/pause.
func (h *RequestsHandler) Pause(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Pause)
}

// Resume POST /requests/:id/resume.
func (h *RequestsHandler) Resume(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Resume)
}

// ChangeState POST /requests/:id/state.
func (h *RequestsHandler) ChangeState(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.ChangeState(c.UserContext(), c.Params("id"), strings.ToUpper(strings.TrimSpace(req.State)), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, h.now())})
}

// Update PATCH /requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("id"), service.RequestPatch{
		Description:      req.Description,
		ExtraDescription: req.ExtraDescription,
		Cost:             req.Cost,
		CategoryID:       req.CategoryID,
		AssigneeID:       req.AssigneeID,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, h.now())})
}

// Transfer POST /requests/transfer.
func (h *RequestsHandler) Transfer(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.TransferBulk(c.UserContext(), service.TransferInput{
		FromUserID: req.FromUserID,
		RequestIDs: req.RequestIDs,
		ToUserIDs:  req.ToUserIDs,
		Reason:     req.Reason,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// History GET /history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	states, err := parseStates(c.Query("state"))
	if err != nil {
		return err
	}
	areas, err := parseAreas(c.Query("area"))
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	rows, err := h.service.GetHistory(c.UserContext(), repository.HistoryFilter{
		States:       states,
		Areas:        areas,
		ClientID:     optionalQuery(c, "client_id"),
		AssigneeID:   optionalQuery(c, "assignee_id"),
		CreatorID:    optionalQuery(c, "creator_id"),
		ResolvedFrom: parseTime(c.Query("resolved_from")),
		ResolvedTo:   parseTime(c.Query("resolved_to")),
		Limit:        limit,
		Offset:       offset,
	}, actor)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(rows))
	for i := range rows {
		items = append(items, dto.NewHistoryResponse(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *RequestsHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, id string, actor domain.Actor) (*domain.Request, error)) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	updated, err := op(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated, h.now())})
}

func (h *RequestsHandler) render(requests []domain.Request) []dto.RequestResponse {
	now := h.now()
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestResponse(&requests[i], now))
	}
	return items
}

func parseRequestFilter(c *fiber.Ctx) (repository.RequestFilter, error) {
	states, err := parseStates(c.Query("state"))
	if err != nil {
		return repository.RequestFilter{}, err
	}
	areas, err := parseAreas(c.Query("area"))
	if err != nil {
		return repository.RequestFilter{}, err
	}
	limit, offset := pagination(c)
	return repository.RequestFilter{
		States:      states,
		Areas:       areas,
		ClientID:    optionalQuery(c, "client_id"),
		AssigneeID:  optionalQuery(c, "assignee_id"),
		CreatorID:   optionalQuery(c, "creator_id"),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
		Limit:       limit,
		Offset:      offset,
	}, nil
}
