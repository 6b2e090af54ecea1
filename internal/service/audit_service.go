package service

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hostdesk/hosting-service/internal/events"
)

// AuditService writes every domain event to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{dispatcher: dispatcher, logger: logger.Named("audit")}
}

// RegisterHandlers subscribes the audit log to every event. Escalations and
// entitlement denials are logged at warn, everything else at info.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.SubscribeAll(func(ctx context.Context, event events.Event) error {
		return a.logAt(levelFor(event.Type))(ctx, event)
	})
}

func levelFor(eventType events.EventType) zapcore.Level {
	switch eventType {
	case events.EventTicketEscalated, events.EventEntitlementDenied:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func (a *AuditService) logAt(level zapcore.Level) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("subject_id", event.SubjectID),
			zap.String("actor_type", string(event.Actor.Type)),
			zap.Time("at", event.Timestamp),
			zap.Any("payload", event.Payload),
		}
		if event.Actor.TenantID != nil {
			fields = append(fields, zap.String("actor_id", *event.Actor.TenantID))
		}
		if ce := a.logger.Check(level, string(event.Type)); ce != nil {
			ce.Write(fields...)
		}
		return nil
	}
}
