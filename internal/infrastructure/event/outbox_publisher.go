package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/shared"
)

// OutboxPublisher writes domain events into the outbox table inside the same
// transaction that persists the aggregate, so an event is recorded if and
// only if the change committed.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx serializes the events and saves them as outbox entries using
// the provided transaction
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", evt.EventType(), err)
		}
		entries = append(entries, shared.NewOutboxEntry(evt.TenantID(), evt, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver. The txProvider must be the
// *gorm.DB transaction the aggregate is being saved in.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
