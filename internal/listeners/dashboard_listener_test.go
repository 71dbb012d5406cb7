package listeners

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/events"
	"transport-request-system/pkg/eventbus"
)

type fakeDashboard struct {
	invalidations int
	err           error
}

func (f *fakeDashboard) GetDashboard(ctx context.Context) (*dto.DashboardDTO, error) {
	return &dto.DashboardDTO{}, nil
}

func (f *fakeDashboard) Invalidate(ctx context.Context) error {
	f.invalidations++
	return f.err
}

type otherEvent struct{}

func (otherEvent) Name() string { return events.ApplicationChangedEventName }

func TestDashboardCacheListener_InvalidatesOnChange(t *testing.T) {
	dashboard := &fakeDashboard{}
	bus := eventbus.New(zap.NewNop())
	NewDashboardCacheListener(dashboard, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), events.ApplicationChangedEvent{ApplicationID: 1, Operation: "approve"})

	assert.Equal(t, 1, dashboard.invalidations, "сброс завершён до возврата из Publish")
}

func TestDashboardCacheListener_Errors(t *testing.T) {
	dashboard := &fakeDashboard{err: errors.New("redis недоступен")}
	listener := NewDashboardCacheListener(dashboard, zap.NewNop())

	err := listener.Handle(context.Background(), events.ApplicationChangedEvent{ApplicationID: 7})
	assert.ErrorContains(t, err, "заявка 7")

	err = listener.Handle(context.Background(), otherEvent{})
	assert.Error(t, err)
}
