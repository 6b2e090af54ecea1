package entitlement

import (
	"fmt"
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// ActionKind enumerates the tenant actions the gate understands.
type ActionKind string

const (
	ActionCreateDomain ActionKind = "create_domain"
	ActionMutateDomain ActionKind = "mutate_domain"
)

// ActionRequest describes the action a tenant is attempting.
type ActionRequest struct {
	Kind     ActionKind
	DomainID string
}

// CreateDomain builds a request to add a new domain.
func CreateDomain() ActionRequest {
	return ActionRequest{Kind: ActionCreateDomain}
}

// MutateDomain builds a request to change an existing domain.
func MutateDomain(domainID string) ActionRequest {
	return ActionRequest{Kind: ActionMutateDomain, DomainID: domainID}
}

// TenantSnapshot is the caller-assembled view of the tenant at decision time.
// Usage is only consulted for MutateDomain and may be nil when unavailable.
type TenantSnapshot struct {
	DomainCount int
	Plan        *domain.Plan
	Usage       *domain.UsageSnapshot
}

// DenialCode values are stable strings the API exposes to clients.
type DenialCode string

const (
	CodeHostingPlanRequired   DenialCode = "hosting_plan_required"
	CodeDomainLimitReached    DenialCode = "domain_limit_reached"
	CodeResourceLimitExceeded DenialCode = "resource_limit_exceeded"
	CodePlanExpired           DenialCode = "plan_expired"
)

// Denial explains why an action was refused.
type Denial struct {
	Code    DenialCode
	Message string
	Detail  map[string]any
}

// Decision is the gate outcome. Denial is nil when the action is allowed.
type Decision struct {
	Denial *Denial
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool {
	return d.Denial == nil
}

// Gate is the single authorization point for mutating tenant actions.
type Gate struct{}

// NewGate returns a gate.
func NewGate() *Gate {
	return &Gate{}
}

// Authorize evaluates, in order: plan presence, domain count (create only),
// resource usage (mutate only, when usage is known) and plan expiry. The first
// failing check determines the denial. Malformed snapshots return an error
// wrapping ErrInvalidUsageValue instead of a decision.
func (g *Gate) Authorize(action ActionRequest, tenant TenantSnapshot, now time.Time) (Decision, error) {
	if tenant.DomainCount < 0 {
		return Decision{}, fmt.Errorf("domain count %d: %w", tenant.DomainCount, ErrInvalidUsageValue)
	}

	plan := tenant.Plan
	if plan == nil {
		return deny(CodeHostingPlanRequired, "No active hosting plan found", nil), nil
	}

	if action.Kind == ActionCreateDomain && tenant.DomainCount >= plan.DomainLimit {
		return deny(CodeDomainLimitReached, "Domain limit reached for current hosting plan", map[string]any{
			"current_plan": plan.Name,
			"domain_limit": plan.DomainLimit,
		}), nil
	}

	if action.Kind == ActionMutateDomain && tenant.Usage != nil {
		verdict, err := EvaluateUsage(*tenant.Usage, plan.Limits())
		if err != nil {
			return Decision{}, err
		}
		if !verdict.Allowed {
			return deny(CodeResourceLimitExceeded, "Resource limits exceeded for current hosting plan", map[string]any{
				"current_plan": plan.Name,
				"reason":       string(verdict.Reason),
			}), nil
		}
	}

	if PlanExpired(plan, now) {
		return deny(CodePlanExpired, "Hosting plan has expired", map[string]any{
			"expired_at": *plan.ExpiresAt,
		}), nil
	}

	return Decision{}, nil
}

func deny(code DenialCode, message string, detail map[string]any) Decision {
	return Decision{Denial: &Denial{Code: code, Message: message, Detail: detail}}
}
