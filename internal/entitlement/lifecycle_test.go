package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hostdesk/hosting-service/internal/domain"
)

var refTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func TestIsExpired_NoExpiryNeverExpires(t *testing.T) {
	for _, now := range []time.Time{refTime, refTime.AddDate(50, 0, 0), time.Time{}} {
		assert.False(t, IsExpired(nil, now))
	}
}

func TestIsExpired_Boundary(t *testing.T) {
	expiresAt := ptrTime(refTime)
	assert.True(t, IsExpired(expiresAt, refTime.Add(time.Second)))
	assert.False(t, IsExpired(expiresAt, refTime.Add(-time.Second)))
	assert.False(t, IsExpired(expiresAt, refTime))
}

func TestDaysUntilExpiry(t *testing.T) {
	assert.Equal(t, 0, DaysUntilExpiry(nil, refTime))
	assert.Equal(t, 10, DaysUntilExpiry(ptrTime(refTime.AddDate(0, 0, 10)), refTime))
	assert.Equal(t, 9, DaysUntilExpiry(ptrTime(refTime.AddDate(0, 0, 10).Add(-time.Minute)), refTime))
	assert.Equal(t, -3, DaysUntilExpiry(ptrTime(refTime.AddDate(0, 0, -3)), refTime))
	assert.Equal(t, 0, DaysUntilExpiry(ptrTime(refTime.Add(-time.Hour)), refTime))
}

func TestExpiringWithin(t *testing.T) {
	assert.True(t, ExpiringWithin(ptrTime(refTime.AddDate(0, 0, 5)), refTime, 7))
	assert.True(t, ExpiringWithin(ptrTime(refTime.AddDate(0, 0, 7)), refTime, 7))
	assert.False(t, ExpiringWithin(ptrTime(refTime.AddDate(0, 0, 8)), refTime, 7))
	assert.False(t, ExpiringWithin(ptrTime(refTime.Add(-time.Hour)), refTime, 7))
	assert.False(t, ExpiringWithin(nil, refTime, 7))
}

func TestPlanAndDomainExpired(t *testing.T) {
	plan := &domain.Plan{IsActive: true, ExpiresAt: ptrTime(refTime)}
	assert.True(t, PlanExpired(plan, refTime.Add(time.Second)), "active flag does not mask expiry")
	assert.False(t, PlanExpired(nil, refTime))

	d := &domain.Domain{ExpiresAt: ptrTime(refTime)}
	assert.True(t, DomainExpired(d, refTime.Add(time.Second)))
	assert.False(t, DomainExpired(&domain.Domain{}, refTime))
}
