package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/repository"
)

// AuditService records auth lifecycle events in the log and, when a database is
// configured, in the auth_events table.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	repo       repository.AuthEventRepository
}

// NewAuditService creates the service. repo may be nil for log-only auditing.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, repo repository.AuthEventRepository) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		repo:       repo,
	}
}

// RegisterHandlers subscribes to every auth event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, typ := range events.AllTypes {
		a.dispatcher.Subscribe(typ, a.handle)
	}
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Path != "" {
		fields = append(fields, zap.String("path", event.Path))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if len(event.Payload) > 0 {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("auth event", fields...)

	if a.repo == nil {
		return nil
	}
	record := &domain.AuthEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		UserID:     event.UserID,
		SessionID:  event.SessionID,
		Path:       event.Path,
		Reason:     event.Reason,
		Payload:    event.Payload,
		OccurredAt: event.Timestamp,
	}
	if err := a.repo.Create(ctx, record); err != nil {
		a.logger.Warn("persist auth event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}

// Recent returns the latest events of a user, newest first. Without a database
// it returns nothing.
func (a *AuditService) Recent(ctx context.Context, userID string, limit int) ([]domain.AuthEvent, error) {
	if a.repo == nil || userID == "" {
		return nil, nil
	}
	return a.repo.ListByUser(ctx, userID, limit)
}
