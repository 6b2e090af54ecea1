package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/domain"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

const maxPageSize = 100

func currentTenant(c *fiber.Ctx) (*domain.Tenant, error) {
	tenant, ok := auth.TenantFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return tenant, nil
}

// pagination reads page and page_size and returns limit and offset.
func pagination(c *fiber.Ctx) (int, int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func parseStatuses(raw string) []domain.TicketStatus {
	var out []domain.TicketStatus
	for _, part := range splitList(raw) {
		out = append(out, domain.TicketStatus(part))
	}
	return out
}

func parsePriorities(raw string) []domain.TicketPriority {
	var out []domain.TicketPriority
	for _, part := range splitList(raw) {
		out = append(out, domain.TicketPriority(part))
	}
	return out
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
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
