package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-request-system/internal/entities"
	apperrors "transport-request-system/pkg/errors"
)

func newTestApplication(unit string, createdAt time.Time) *entities.Application {
	return &entities.Application{
		Number:            "20250110-1234",
		Status:            entities.StatusCreatedOrModified,
		ApplicationDate:   createdAt,
		OrganizationUnit:  unit,
		ResponsiblePerson: "Иванов И.И.",
		Phone:             "+7 900 000-00-00",
		Purpose:           "Командировка",
		Route:             "Офис - аэропорт",
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

func createWithHistory(t *testing.T, repo ApplicationRepositoryInterface, app *entities.Application) {
	t.Helper()
	err := repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		if err := tx.CreateApplication(context.Background(), app); err != nil {
			return err
		}
		return tx.CreateHistory(context.Background(), &entities.StatusHistory{
			ApplicationID: app.ID,
			OldStatus:     entities.StatusUnset,
			NewStatus:     app.Status.String(),
			ChangedBy:     "System",
			ChangedDate:   app.CreatedAt,
		})
	})
	require.NoError(t, err)
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	app := newTestApplication("Logistics", time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	createWithHistory(t, repo, app)

	assert.Equal(t, uint64(1), app.ID)
	assert.Equal(t, uint64(1), app.Version)

	found, err := repo.FindApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logistics", found.OrganizationUnit)
	require.Len(t, found.StatusHistory, 1)
	assert.Equal(t, entities.StatusUnset, found.StatusHistory[0].OldStatus)

	_, err = repo.FindApplication(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	app := newTestApplication("Logistics", time.Now())
	createWithHistory(t, repo, app)

	found, err := repo.FindApplication(context.Background(), app.ID)
	require.NoError(t, err)
	found.OrganizationUnit = "изменено"
	found.StatusHistory[0].NewStatus = "изменено"

	again, err := repo.FindApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logistics", again.OrganizationUnit)
	assert.Equal(t, "CreatedOrModified", again.StatusHistory[0].NewStatus)
}

func TestMemoryRepository_RollbackOnError(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	app := newTestApplication("Logistics", time.Now())
	createWithHistory(t, repo, app)

	boom := errors.New("boom")
	err := repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		current, err := tx.FindForUpdate(context.Background(), app.ID)
		if err != nil {
			return err
		}
		current.Status = entities.StatusApproved
		if err := tx.UpdateApplication(context.Background(), current, current.Version); err != nil {
			return err
		}
		if err := tx.CreateHistory(context.Background(), &entities.StatusHistory{ApplicationID: app.ID, NewStatus: "Approved"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := repo.FindApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCreatedOrModified, found.Status)
	assert.Equal(t, uint64(1), found.Version)
	assert.Len(t, found.StatusHistory, 1)
}

func TestMemoryRepository_UpdateVersionConflict(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	app := newTestApplication("Logistics", time.Now())
	createWithHistory(t, repo, app)

	err := repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		stale := *app
		stale.Purpose = "другая цель"
		return tx.UpdateApplication(context.Background(), &stale, 5)
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

	err = repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		missing := *app
		missing.ID = 99
		return tx.UpdateApplication(context.Background(), &missing, 1)
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryRepository_UpdateKeepsWriteOnceFields(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	app := newTestApplication("Logistics", created)
	createWithHistory(t, repo, app)

	err := repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		changed := *app
		changed.Number = "20990101-9999"
		changed.CreatedAt = created.Add(24 * time.Hour)
		changed.Route = "Новый маршрут"
		return tx.UpdateApplication(context.Background(), &changed, 1)
	})
	require.NoError(t, err)

	found, err := repo.FindApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "20250110-1234", found.Number)
	assert.Equal(t, created, found.CreatedAt)
	assert.Equal(t, "Новый маршрут", found.Route)
	assert.Equal(t, uint64(2), found.Version)
}

func TestMemoryRepository_HistoryForMissingApplication(t *testing.T) {
	repo := NewMemoryApplicationRepository()

	err := repo.RunInTx(context.Background(), func(tx ApplicationTx) error {
		return tx.CreateHistory(context.Background(), &entities.StatusHistory{ApplicationID: 3})
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.GetHistory(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryRepository_GetApplicationsExcludesDeleted(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	first := newTestApplication("Logistics", base)
	second := newTestApplication("Finance", base.Add(time.Hour))
	deleted := newTestApplication("Logistics", base.Add(2*time.Hour))
	deleted.Status = entities.StatusDeleted
	for _, app := range []*entities.Application{first, second, deleted} {
		createWithHistory(t, repo, app)
	}

	apps, err := repo.GetApplications(context.Background(), entities.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, second.ID, apps[0].ID)
	assert.Equal(t, first.ID, apps[1].ID)

	apps, err = repo.GetApplications(context.Background(), entities.ApplicationFilter{OrganizationUnit: "Logistics"})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, first.ID, apps[0].ID)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryApplicationRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.RunInTx(ctx, func(tx ApplicationTx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryCacheRepository(t *testing.T) {
	cache := NewMemoryCacheRepository()
	ctx := context.Background()

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	value, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, value)

	require.NoError(t, cache.Set(ctx, "short", "v", 20*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "short")
		return errors.Is(err, ErrCacheMiss)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, cache.Set(ctx, "forever", 42, 0))
	value, err = cache.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	require.NoError(t, cache.Del(ctx, "k"))
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
