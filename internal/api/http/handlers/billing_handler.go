package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/api/dto"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/service"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// BillingHandler exposes billing periods.
type BillingHandler struct {
	service *service.BillingService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{service: billingService}
}

// Generate POST /billing/generate.
func (h *BillingHandler) Generate(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.GenerateBillingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" {
		return apperrors.NewValidationError("client_id required", nil)
	}
	period, err := h.service.Generate(c.UserContext(), req.ClientID, req.Year, req.Month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBillingPeriodResponse(period)})
}

// GenerateAll POST /billing/generate-all.
func (h *BillingHandler) GenerateAll(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.MonthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.GenerateForAllClients(c.UserContext(), req.Year, req.Month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// GenerateAutomatic POST /billing/generate-automatic.
func (h *BillingHandler) GenerateAutomatic(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.MonthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.GenerateAutomatic(c.UserContext(), req.Year, req.Month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// List GET /billing.
func (h *BillingHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	filter := repository.BillingFilter{
		ClientID: optionalQuery(c, "client_id"),
		Limit:    limit,
		Offset:   offset,
	}
	if y, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = &y
	}
	if m, err := strconv.Atoi(c.Query("month")); err == nil {
		filter.Month = &m
	}
	for _, s := range parseList(c.Query("state")) {
		filter.States = append(filter.States, domain.BillingState(s))
	}
	periods, err := h.service.List(c.UserContext(), filter, actor)
	if err != nil {
		return err
	}
	items := make([]dto.BillingPeriodResponse, 0, len(periods))
	for i := range periods {
		items = append(items, dto.NewBillingPeriodResponse(&periods[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /billing/:id.
func (h *BillingHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	period, err := h.service.Get(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBillingPeriodResponse(period)})
}

// Close POST /billing/:id/close.
func (h *BillingHandler) Close(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	period, err := h.service.Close(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBillingPeriodResponse(period)})
}

// Invoice POST /billing/:id/invoice.
func (h *BillingHandler) Invoice(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	period, err := h.service.Invoice(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBillingPeriodResponse(period)})
}
