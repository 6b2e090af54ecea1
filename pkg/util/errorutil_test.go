package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/sla"
)

func TestToDomainError_Nil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	original := NewConflict("domain exists", map[string]any{"name": "example.com"})
	wrapped := fmt.Errorf("create: %w", original)

	mapped := ToDomainError(wrapped)
	require.NotNil(t, mapped)
	assert.Equal(t, "CONFLICT", mapped.Code)
	assert.Equal(t, http.StatusConflict, mapped.HTTPStatus)
}

func TestToDomainError_NoRows(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("get plan: %w", pgx.ErrNoRows))
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainError_InvalidPolicyInput(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("storage -1: %w", entitlement.ErrInvalidUsageValue),
		fmt.Errorf("ticket: %w", sla.ErrInvalidTimestamp),
	} {
		mapped := ToDomainError(err)
		assert.Equal(t, "INVALID_INPUT", mapped.Code)
		assert.Equal(t, http.StatusUnprocessableEntity, mapped.HTTPStatus)
		assert.ErrorIs(t, mapped, err)
	}
}

func TestToDomainError_TicketClosed(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("close: %w", sla.ErrTicketClosed))
	assert.Equal(t, http.StatusConflict, mapped.HTTPStatus)
}

func TestToDomainError_FiberError(t *testing.T) {
	mapped := ToDomainError(fiber.NewError(http.StatusForbidden, "support role required"))
	assert.Equal(t, "FORBIDDEN", mapped.Code)
	assert.Equal(t, "support role required", mapped.Message)
}

func TestToDomainError_Unknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.Equal(t, "internal server error: boom", mapped.Error())
}

func TestNewPolicyDenied(t *testing.T) {
	err := NewPolicyDenied(&entitlement.Denial{
		Code:    entitlement.CodeDomainLimitReached,
		Message: "Domain limit reached for current hosting plan",
		Detail:  map[string]any{"domain_limit": 2},
	})
	mapped := ToDomainError(err)
	assert.Equal(t, "domain_limit_reached", mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
	assert.Equal(t, 2, mapped.Details["domain_limit"])
}
