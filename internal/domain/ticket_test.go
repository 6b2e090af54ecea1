package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketPriority_Order(t *testing.T) {
	assert.Equal(t, []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical}, Priorities())
	assert.Less(t, TicketPriorityLow.Rank(), TicketPriorityCritical.Rank())
	assert.Equal(t, -1, TicketPriority("urgent").Rank())
}

func TestTicketPriority_Next(t *testing.T) {
	next, ok := TicketPriorityHigh.Next()
	assert.True(t, ok)
	assert.Equal(t, TicketPriorityCritical, next)

	next, ok = TicketPriorityCritical.Next()
	assert.False(t, ok)
	assert.Equal(t, TicketPriorityCritical, next)

	_, ok = TicketPriority("bogus").Next()
	assert.False(t, ok)
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, TicketStatusInProgress.Valid())
	assert.False(t, TicketStatus("OPEN").Valid())
	assert.True(t, DomainStatusExpired.Valid())
	assert.False(t, DomainStatus("deleted").Valid())
}

func TestTenant_IsStaff(t *testing.T) {
	assert.True(t, (&Tenant{Role: TenantRoleSupport}).IsStaff())
	assert.True(t, (&Tenant{Role: TenantRoleAdmin}).IsStaff())
	assert.False(t, (&Tenant{Role: TenantRoleCustomer}).IsStaff())
	var nilTenant *Tenant
	assert.False(t, nilTenant.IsStaff())
}
