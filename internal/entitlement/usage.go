// Package entitlement decides whether a tenant action is permitted under the
// quotas and expiry state of the tenant's current hosting plan.
//
// Every function in this package is pure. Snapshots and the clock are passed in
// by the caller; nothing here reads storage, mutates state or calls time.Now.
package entitlement

import (
	"errors"
	"fmt"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// ErrInvalidUsageValue reports a malformed snapshot, such as a negative byte count.
// It indicates an upstream integration bug and must not be retried.
var ErrInvalidUsageValue = errors.New("invalid usage value")

// Reason identifies which resource quota was exceeded.
type Reason string

const (
	ReasonStorageExceeded   Reason = "storage_limit_exceeded"
	ReasonBandwidthExceeded Reason = "bandwidth_limit_exceeded"
	ReasonDatabaseExceeded  Reason = "database_limit_exceeded"
)

// Verdict is the outcome of a usage evaluation. Reason is empty when Allowed.
type Verdict struct {
	Allowed bool
	Reason  Reason
}

// Allow is the allowed verdict.
var Allow = Verdict{Allowed: true}

// Deny builds a denied verdict.
func Deny(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// EvaluateUsage compares usage against the plan limits. Checks run storage,
// bandwidth, database and stop at the first violation. Usage equal to a limit
// is allowed.
func EvaluateUsage(usage domain.UsageSnapshot, limits domain.PlanLimits) (Verdict, error) {
	if err := ValidateUsage(usage); err != nil {
		return Verdict{}, err
	}

	checks := []struct {
		used   int64
		limit  int64
		reason Reason
	}{
		{usage.Storage, limits.StorageLimit, ReasonStorageExceeded},
		{usage.Bandwidth, limits.BandwidthLimit, ReasonBandwidthExceeded},
		{usage.Database, limits.DatabaseLimit, ReasonDatabaseExceeded},
	}
	for _, check := range checks {
		if check.used > check.limit {
			return Deny(check.reason), nil
		}
	}
	return Allow, nil
}

// ValidateUsage rejects negative figures with an error wrapping ErrInvalidUsageValue.
func ValidateUsage(usage domain.UsageSnapshot) error {
	switch {
	case usage.Storage < 0:
		return fmt.Errorf("storage %d: %w", usage.Storage, ErrInvalidUsageValue)
	case usage.Bandwidth < 0:
		return fmt.Errorf("bandwidth %d: %w", usage.Bandwidth, ErrInvalidUsageValue)
	case usage.Database < 0:
		return fmt.Errorf("database %d: %w", usage.Database, ErrInvalidUsageValue)
	}
	return nil
}
