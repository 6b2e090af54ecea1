package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hostdesk/hosting-service/internal/observability"
)

// ExpiredDomainMarker flips lapsed domains to the expired status.
type ExpiredDomainMarker interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// DomainExpirySweeper marks domains whose expiry has passed.
type DomainExpirySweeper struct {
	domains  ExpiredDomainMarker
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// NewDomainExpirySweeper builds a sweeper. A nil clock uses time.Now.
func NewDomainExpirySweeper(domains ExpiredDomainMarker, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration, now func() time.Time) *DomainExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainExpirySweeper{
		domains:  domains,
		metrics:  metrics,
		logger:   logger.Named("expiry_sweeper"),
		interval: interval,
		now:      now,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *DomainExpirySweeper) Run(ctx context.Context) {
	runTicker(ctx, s.interval, func() {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
		}
	})
}

// SweepOnce marks expired domains and returns how many changed.
func (s *DomainExpirySweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.domains.MarkExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.RecordDomainsExpired(int(n))
		s.logger.Info("domains expired", zap.Int64("count", n))
	}
	return n, nil
}
