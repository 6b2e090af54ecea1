package domain

import "time"

// UsageSnapshot is a caller-supplied, read-only view of a domain's resource consumption in bytes.
type UsageSnapshot struct {
	Storage     int64
	Bandwidth   int64
	Database    int64
	CollectedAt time.Time
}
