package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const listenerTimeout = time.Minute

// Event представляет собой любое событие в системе.
type Event interface {
	Name() string
}

// Listener - обработчик событий.
type Listener func(ctx context.Context, event Event) error

// Bus - шина событий внутри процесса. Обработчики вызываются асинхронно,
// кроме подписанных через SubscribeSync.
type Bus struct {
	listeners     map[string][]Listener
	syncListeners map[string][]Listener
	mu            sync.RWMutex
	inflight      sync.WaitGroup
	logger        *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners:     make(map[string][]Listener),
		syncListeners: make(map[string][]Listener),
		logger:        logger,
	}
}

// Subscribe подписывает слушателя на определенное событие.
func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// SubscribeSync подписывает слушателя, который отработает до возврата из Publish.
func (b *Bus) SubscribeSync(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncListeners[eventName] = append(b.syncListeners[eventName], listener)
}

// Publish сначала вызывает синхронных подписчиков, затем остальных в отдельных горутинах.
// Отмена контекста вызывающего не передаётся: обработчик не должен умирать вместе с HTTP-запросом.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventName := event.Name()
	for _, listener := range b.syncListeners[eventName] {
		b.call(context.WithoutCancel(ctx), eventName, listener, event)
	}
	for _, listener := range b.listeners[eventName] {
		b.inflight.Add(1)
		go func(l Listener) {
			defer b.inflight.Done()
			b.call(context.Background(), eventName, l, event)
		}(listener)
	}
}

func (b *Bus) call(ctx context.Context, eventName string, l Listener, event Event) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, listenerTimeout)
	defer cancel()

	if err := l(ctxWithTimeout, event); err != nil {
		b.logger.Error("Ошибка в обработчике события",
			zap.String("event", eventName),
			zap.Error(err),
		)
	}
}

// Wait ждёт завершения всех запущенных обработчиков (остановка сервера, тесты).
func (b *Bus) Wait() {
	b.inflight.Wait()
}
