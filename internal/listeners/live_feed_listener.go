package listeners

import (
	"context"
	"fmt"

	"transport-request-system/internal/events"
	"transport-request-system/pkg/eventbus"
)

const LiveMessageType = "application_changed"

// Broadcaster - рассылка подключённым клиентам (pkg/websocket.Hub).
type Broadcaster interface {
	Broadcast(ctx context.Context, messageType string, payload interface{}) error
}

// LiveFeedListener пересылает изменения заявок на доску диспетчера.
type LiveFeedListener struct {
	broadcaster Broadcaster
}

func NewLiveFeedListener(broadcaster Broadcaster) *LiveFeedListener {
	return &LiveFeedListener{broadcaster: broadcaster}
}

func (l *LiveFeedListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.ApplicationChangedEventName, l.Handle)
}

func (l *LiveFeedListener) Handle(ctx context.Context, event eventbus.Event) error {
	changed, ok := event.(events.ApplicationChangedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	return l.broadcaster.Broadcast(ctx, LiveMessageType, changed)
}
