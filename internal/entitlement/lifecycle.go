package entitlement

import (
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
)

const day = 24 * time.Hour

// IsExpired reports whether expiresAt lies strictly before now. A nil expiry never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(*expiresAt)
}

// DaysUntilExpiry returns whole days from now until expiresAt, truncated toward zero.
// The result is negative once the expiry has passed and 0 when there is no expiry.
func DaysUntilExpiry(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	return int(expiresAt.Sub(now) / day)
}

// ExpiringWithin reports whether expiresAt falls in the window (now, now+days].
func ExpiringWithin(expiresAt *time.Time, now time.Time, days int) bool {
	if expiresAt == nil || days < 0 {
		return false
	}
	return expiresAt.After(now) && !expiresAt.After(now.Add(time.Duration(days)*day))
}

// PlanExpired applies IsExpired to a plan.
func PlanExpired(plan *domain.Plan, now time.Time) bool {
	return plan != nil && IsExpired(plan.ExpiresAt, now)
}

// DomainExpired applies IsExpired to a hosted domain.
func DomainExpired(d *domain.Domain, now time.Time) bool {
	return d != nil && IsExpired(d.ExpiresAt, now)
}
