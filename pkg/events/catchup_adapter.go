package events

import (
	"context"
	"fmt"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/event"
)

// EventLedger queries the persisted events table for catchup replay. It
// implements CatchupQuerier directly against the ent client — no separate
// service layer is needed since this is the only reader of that table.
type EventLedger struct {
	client *ent.Client
}

// NewEventLedger creates a CatchupQuerier backed by the given ent client.
func NewEventLedger(client *ent.Client) *EventLedger {
	return &EventLedger{client: client}
}

// GetCatchupEvents queries events since sinceID up to limit for the catchup mechanism.
func (l *EventLedger) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]CatchupEvent, error) {
	rows, err := l.client.Event.Query().
		Where(
			event.ChannelEQ(channel),
			event.IDGT(sinceID),
		).
		Order(ent.Asc(event.FieldID)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query catchup events: %w", err)
	}

	result := make([]CatchupEvent, len(rows))
	for i, row := range rows {
		result[i] = CatchupEvent{
			ID:      row.ID,
			Payload: row.Payload,
		}
	}
	return result, nil
}
