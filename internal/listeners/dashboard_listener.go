package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"transport-request-system/internal/events"
	"transport-request-system/internal/services"
	"transport-request-system/pkg/eventbus"
)

// DashboardCacheListener сбрасывает кеш сводки при любом изменении заявок.
type DashboardCacheListener struct {
	dashboard services.DashboardServiceInterface
	logger    *zap.Logger
}

func NewDashboardCacheListener(dashboard services.DashboardServiceInterface, logger *zap.Logger) *DashboardCacheListener {
	return &DashboardCacheListener{dashboard: dashboard, logger: logger}
}

// Register подписывает слушателя синхронно: к ответу на запись сводка уже сброшена.
func (l *DashboardCacheListener) Register(bus *eventbus.Bus) {
	bus.SubscribeSync(events.ApplicationChangedEventName, l.Handle)
}

func (l *DashboardCacheListener) Handle(ctx context.Context, event eventbus.Event) error {
	changed, ok := event.(events.ApplicationChangedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	if err := l.dashboard.Invalidate(ctx); err != nil {
		return fmt.Errorf("не удалось сбросить кеш сводки (заявка %d): %w", changed.ApplicationID, err)
	}
	l.logger.Debug("Кеш сводки сброшен",
		zap.Uint64("applicationID", changed.ApplicationID),
		zap.String("operation", changed.Operation),
	)
	return nil
}
