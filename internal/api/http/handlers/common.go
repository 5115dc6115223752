package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

// pagination returns limit and offset from page/page_size.
func pagination(c *fiber.Ctx) (int, int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func parseStates(val string) ([]domain.RequestState, error) {
	var states []domain.RequestState
	for _, part := range parseList(val) {
		state, ok := domain.ParseState(strings.ToUpper(part))
		if !ok {
			return nil, apperrors.NewValidationError("invalid state", map[string]any{"state": part})
		}
		states = append(states, state)
	}
	return states, nil
}

func parseAreas(val string) ([]domain.Area, error) {
	var areas []domain.Area
	for _, part := range parseList(val) {
		area, err := domain.ParseArea(strings.ToUpper(part))
		if err != nil {
			return nil, apperrors.NewValidationError("invalid area", map[string]any{"area": part})
		}
		areas = append(areas, area)
	}
	return areas, nil
}

// queryMonth reads year and month query parameters.
func queryMonth(c *fiber.Ctx) (int, int, error) {
	year, yerr := strconv.Atoi(c.Query("year"))
	month, merr := strconv.Atoi(c.Query("month"))
	if yerr != nil || merr != nil {
		return 0, 0, apperrors.NewValidationError("year and month query parameters are required", nil)
	}
	return year, month, nil
}
