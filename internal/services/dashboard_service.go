package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/entities"
	"transport-request-system/internal/repositories"
	"transport-request-system/pkg/metrics"
)

const (
	DashboardCacheKey   = "dashboard:summary"
	dashboardRecentSize = 5
)

type DashboardServiceInterface interface {
	GetDashboard(ctx context.Context) (*dto.DashboardDTO, error)
	Invalidate(ctx context.Context) error
}

type DashboardService struct {
	repo         repositories.ApplicationRepositoryInterface
	cache        repositories.CacheRepositoryInterface
	cacheTTL     time.Duration
	urgentWindow time.Duration
	now          func() time.Time
	metrics      *metrics.WorkflowMetrics
	logger       *zap.Logger

	// generation растёт при каждом сбросе; сводку, посчитанную до сброса, в кеш не кладём.
	mu         sync.Mutex
	generation uint64
}

func NewDashboardService(
	repo repositories.ApplicationRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL, urgentWindow time.Duration,
	now func() time.Time,
	metrics *metrics.WorkflowMetrics,
	logger *zap.Logger,
) DashboardServiceInterface {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		repo:         repo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		urgentWindow: urgentWindow,
		now:          now,
		metrics:      metrics,
		logger:       logger,
	}
}

// GetDashboard отдаёт сводку из кеша, при промахе считает заново.
// Недоступный кеш не ломает сводку: ошибка только логируется.
func (s *DashboardService) GetDashboard(ctx context.Context) (*dto.DashboardDTO, error) {
	if cached, ok := s.fromCache(ctx); ok {
		s.metrics.CacheHit()
		return cached, nil
	}
	s.metrics.CacheMiss()

	generation := s.currentGeneration()
	apps, err := s.repo.GetApplications(ctx, entities.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	summary := buildDashboard(apps, s.now(), s.urgentWindow)
	s.store(ctx, summary, generation)
	return summary, nil
}

// Invalidate сбрасывает сводку. Расчёты, начатые до сброса, в кеш уже не попадут.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, DashboardCacheKey)
}

func (s *DashboardService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *DashboardService) store(ctx context.Context, summary *dto.DashboardDTO, generation uint64) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("Не удалось сохранить сводку в кеш", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		s.logger.Debug("Сводка устарела во время расчёта, в кеш не сохраняется")
		return
	}
	if err := s.cache.Set(ctx, DashboardCacheKey, payload, s.cacheTTL); err != nil {
		s.logger.Warn("Не удалось сохранить сводку в кеш", zap.Error(err))
	}
}

func (s *DashboardService) fromCache(ctx context.Context) (*dto.DashboardDTO, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, DashboardCacheKey)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Кеш сводки недоступен", zap.Error(err))
		}
		return nil, false
	}
	var summary dto.DashboardDTO
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.logger.Warn("Повреждённая сводка в кеше", zap.Error(err))
		return nil, false
	}
	return &summary, true
}

// buildDashboard считает сводку по неудалённым заявкам, отсортированным от новых к старым.
func buildDashboard(apps []entities.Application, now time.Time, urgentWindow time.Duration) *dto.DashboardDTO {
	summary := &dto.DashboardDTO{
		TotalApplications:  len(apps),
		RecentApplications: make([]dto.ApplicationResponseDTO, 0, dashboardRecentSize),
		GeneratedAt:        now,
	}
	urgentUntil := now.Add(urgentWindow)

	for i := range apps {
		app := &apps[i]
		if sameDay(app.ApplicationDate, now) {
			summary.TodayApplications++
		}
		if app.Status == entities.StatusCreatedOrModified {
			summary.PendingApplications++
		}
		if isUrgent(app, now, urgentUntil) {
			summary.UrgentApplications++
		}
		if len(summary.RecentApplications) < dashboardRecentSize {
			summary.RecentApplications = append(summary.RecentApplications, dto.NewApplicationResponse(app))
		}
	}
	return summary
}

// isUrgent - заявка ещё не исполнена, а поездка начинается в ближайшее окно.
func isUrgent(app *entities.Application, now, until time.Time) bool {
	switch app.Status {
	case entities.StatusCreatedOrModified, entities.StatusApproved, entities.StatusAssignedToVehicle:
	default:
		return false
	}
	if app.TripStart == nil {
		return false
	}
	return !app.TripStart.Before(now) && app.TripStart.Before(until)
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
