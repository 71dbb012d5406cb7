package repositories

import (
	"context"
	"sort"
	"sync"

	"transport-request-system/internal/entities"
	"transport-request-system/internal/workflow"
	apperrors "transport-request-system/pkg/errors"
)

// MemoryApplicationRepository хранит заявки в памяти процесса.
// Транзакции выполняются строго по одной: изменения копятся в memoryTx
// и применяются только если fn вернула nil. Наружу отдаются только копии.
//
// Внутри fn нельзя вызывать методы самого репозитория, только методы tx.
type MemoryApplicationRepository struct {
	mu            sync.Mutex
	applications  map[uint64]entities.Application
	history       map[uint64][]entities.StatusHistory
	lastAppID     uint64
	lastHistoryID uint64
}

func NewMemoryApplicationRepository() *MemoryApplicationRepository {
	return &MemoryApplicationRepository{
		applications: make(map[uint64]entities.Application),
		history:      make(map[uint64][]entities.StatusHistory),
	}
}

var _ ApplicationRepositoryInterface = (*MemoryApplicationRepository)(nil)

func (r *MemoryApplicationRepository) FindApplication(ctx context.Context, id uint64) (*entities.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.applications[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	app.StatusHistory = copyHistory(r.history[id])
	return &app, nil
}

func (r *MemoryApplicationRepository) GetApplications(ctx context.Context, filter entities.ApplicationFilter) ([]entities.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	all := make([]entities.Application, 0, len(r.applications))
	for _, app := range r.applications {
		all = append(all, app)
	}
	r.mu.Unlock()

	return workflow.Select(filter, all), nil
}

func (r *MemoryApplicationRepository) GetHistory(ctx context.Context, applicationID uint64) ([]entities.StatusHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applications[applicationID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyHistory(r.history[applicationID]), nil
}

func (r *MemoryApplicationRepository) RunInTx(ctx context.Context, fn func(tx ApplicationTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:          r,
		applications:  make(map[uint64]entities.Application),
		history:       make(map[uint64][]entities.StatusHistory),
		lastAppID:     r.lastAppID,
		lastHistoryID: r.lastHistoryID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.apply()
	return nil
}

type memoryTx struct {
	repo          *MemoryApplicationRepository
	applications  map[uint64]entities.Application
	history       map[uint64][]entities.StatusHistory
	lastAppID     uint64
	lastHistoryID uint64
}

func (t *memoryTx) lookup(id uint64) (entities.Application, bool) {
	if app, ok := t.applications[id]; ok {
		return app, true
	}
	app, ok := t.repo.applications[id]
	return app, ok
}

func (t *memoryTx) FindForUpdate(ctx context.Context, id uint64) (*entities.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	app, ok := t.lookup(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	history := copyHistory(t.repo.history[id])
	app.StatusHistory = append(history, t.history[id]...)
	return &app, nil
}

func (t *memoryTx) CreateApplication(ctx context.Context, app *entities.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.lastAppID++
	app.ID = t.lastAppID
	app.Version = 1

	stored := *app
	stored.StatusHistory = nil
	t.applications[app.ID] = stored
	return nil
}

func (t *memoryTx) UpdateApplication(ctx context.Context, app *entities.Application, expectedVersion uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := t.lookup(app.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return apperrors.ErrConcurrencyConflict
	}

	stored := *app
	stored.StatusHistory = nil
	stored.Number = current.Number
	stored.CreatedAt = current.CreatedAt
	stored.Version = current.Version + 1
	t.applications[app.ID] = stored
	app.Version = stored.Version
	return nil
}

func (t *memoryTx) CreateHistory(ctx context.Context, entry *entities.StatusHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.lookup(entry.ApplicationID); !ok {
		return apperrors.ErrNotFound
	}
	t.lastHistoryID++
	entry.ID = t.lastHistoryID
	t.history[entry.ApplicationID] = append(t.history[entry.ApplicationID], *entry)
	return nil
}

func (t *memoryTx) apply() {
	r := t.repo
	for id, app := range t.applications {
		r.applications[id] = app
	}
	for id, entries := range t.history {
		merged := append(r.history[id], entries...)
		sort.SliceStable(merged, func(i, j int) bool {
			if !merged[i].ChangedDate.Equal(merged[j].ChangedDate) {
				return merged[i].ChangedDate.Before(merged[j].ChangedDate)
			}
			return merged[i].ID < merged[j].ID
		})
		r.history[id] = merged
	}
	r.lastAppID = t.lastAppID
	r.lastHistoryID = t.lastHistoryID
}

func copyHistory(src []entities.StatusHistory) []entities.StatusHistory {
	out := make([]entities.StatusHistory, len(src))
	copy(out, src)
	return out
}
