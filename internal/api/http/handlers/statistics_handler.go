package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/api/dto"
	"github.com/spec-kit/request-desk/internal/service"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// StatisticsHandler exposes monthly statistics.
type StatisticsHandler struct {
	service *service.StatisticsService
}

// NewStatisticsHandler constructs handler.
func NewStatisticsHandler(statisticsService *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: statisticsService}
}

// Calculate POST /statistics/users/:id/calculate.
func (h *StatisticsHandler) Calculate(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.MonthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	stat, err := h.service.Calculate(c.UserContext(), c.Params("id"), req.Year, req.Month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserStatisticResponse(stat, "")})
}

// Get GET /statistics/users/:id?year=&month=.
func (h *StatisticsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	year, month, err := queryMonth(c)
	if err != nil {
		return err
	}
	stat, err := h.service.Get(c.UserContext(), c.Params("id"), year, month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserStatisticResponse(stat, "")})
}

// Recalculate POST /statistics/recalculate.
func (h *StatisticsHandler) Recalculate(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.MonthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.RecalculateAll(c.UserContext(), req.Year, req.Month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// List GET /statistics?year=&month=.
func (h *StatisticsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	year, month, err := queryMonth(c)
	if err != nil {
		return err
	}
	rows, err := h.service.List(c.UserContext(), year, month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAreaStatisticResponses(rows)})
}

// Summary GET /statistics/summary?year=&month=.
func (h *StatisticsHandler) Summary(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	year, month, err := queryMonth(c)
	if err != nil {
		return err
	}
	summary, err := h.service.GlobalSummary(c.UserContext(), year, month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// ByArea GET /statistics/by-area?year=&month=.
func (h *StatisticsHandler) ByArea(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	year, month, err := queryMonth(c)
	if err != nil {
		return err
	}
	areas, err := h.service.ByArea(c.UserContext(), year, month, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": areas})
}
