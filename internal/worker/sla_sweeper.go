package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/observability"
	"github.com/hostdesk/hosting-service/internal/sla"
)

const sweepPageSize = 200

// TicketSource is the slice of the ticket service the sweeper needs.
type TicketSource interface {
	ListUnresolved(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	EscalateOverdue(ctx context.Context, ticket *domain.Ticket) (sla.EscalationResult, error)
}

// SweepResult summarizes one pass.
type SweepResult struct {
	Scanned   int
	Overdue   int
	Escalated int
}

// SLASweeper periodically counts overdue tickets and optionally escalates them.
type SLASweeper struct {
	tickets      TicketSource
	engine       *sla.Engine
	metrics      *observability.Metrics
	logger       *zap.Logger
	interval     time.Duration
	autoEscalate bool
	now          func() time.Time
}

// SLASweeperConfig configures the sweeper.
type SLASweeperConfig struct {
	Interval     time.Duration
	AutoEscalate bool
	Now          func() time.Time
}

// NewSLASweeper builds a sweeper.
func NewSLASweeper(tickets TicketSource, engine *sla.Engine, metrics *observability.Metrics, logger *zap.Logger, cfg SLASweeperConfig) *SLASweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLASweeper{
		tickets:      tickets,
		engine:       engine,
		metrics:      metrics,
		logger:       logger.Named("sla_sweeper"),
		interval:     cfg.Interval,
		autoEscalate: cfg.AutoEscalate,
		now:          cfg.Now,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *SLASweeper) Run(ctx context.Context) {
	runTicker(ctx, s.interval, func() {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sla sweep failed", zap.Error(err))
		}
	})
}

// SweepOnce evaluates every unresolved ticket against a single instant.
func (s *SLASweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()
	for offset := 0; ; offset += sweepPageSize {
		page, err := s.tickets.ListUnresolved(ctx, sweepPageSize, offset)
		if err != nil {
			return result, err
		}
		for i := range page {
			ticket := &page[i]
			result.Scanned++
			if !s.engine.IsOverdue(ticket, now) {
				continue
			}
			result.Overdue++
			if !s.autoEscalate || !s.dueForEscalation(ticket, now) {
				continue
			}
			escalation, err := s.tickets.EscalateOverdue(ctx, ticket)
			if err != nil {
				s.logger.Warn("escalation failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
				continue
			}
			if escalation.Escalated {
				result.Escalated++
				s.logger.Info("ticket escalated",
					zap.String("ticket_id", ticket.ID),
					zap.String("old_priority", string(escalation.OldPriority)),
					zap.String("new_priority", string(escalation.NewPriority)))
			}
		}
		if len(page) < sweepPageSize {
			break
		}
	}
	s.metrics.SetOverdueTickets(result.Overdue)
	s.logger.Debug("sla sweep complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("overdue", result.Overdue),
		zap.Int("escalated", result.Escalated))
	return result, nil
}

// dueForEscalation allows one automatic step per response window.
func (s *SLASweeper) dueForEscalation(ticket *domain.Ticket, now time.Time) bool {
	if ticket.EscalatedAt == nil {
		return true
	}
	return now.Sub(*ticket.EscalatedAt) >= s.engine.Thresholds().Window(ticket.Priority)
}

func runTicker(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
