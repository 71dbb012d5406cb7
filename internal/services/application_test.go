package services

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/entities"
	"transport-request-system/internal/repositories"
	"transport-request-system/internal/workflow"
	apperrors "transport-request-system/pkg/errors"
	"transport-request-system/pkg/eventbus"
	"transport-request-system/pkg/metrics"
	"transport-request-system/pkg/utils"
	"transport-request-system/pkg/validation"
)

var numberFormat = regexp.MustCompile(`^\d{8}-\d{4}$`)

// steppingClock каждый вызов сдвигает время на минуту вперёд.
type steppingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

type ApplicationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	repo     *repositories.MemoryApplicationRepository
	registry *prometheus.Registry
	bus      *eventbus.Bus
	service  ApplicationServiceInterface
}

func (s *ApplicationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = repositories.NewMemoryApplicationRepository()
	s.registry = prometheus.NewRegistry()
	s.bus = eventbus.New(zap.NewNop())
	s.service = s.newService(workflow.PermissivePolicy{})
}

func (s *ApplicationServiceSuite) newService(policy workflow.TransitionPolicy) ApplicationServiceInterface {
	clock := &steppingClock{cur: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)}
	return NewApplicationService(
		s.repo,
		workflow.NewEngine(policy, clock.Now),
		NewAuditRecorder(zap.NewNop()),
		workflow.NewNumberGenerator(rand.NewSource(1)),
		validation.New(),
		s.bus,
		metrics.NewWorkflowMetrics(s.registry),
		zap.NewNop(),
	)
}

func validFields(unit string) dto.ApplicationFieldsDTO {
	return dto.ApplicationFieldsDTO{
		ApplicationDate:   dto.DateFrom(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
		OrganizationUnit:  unit,
		ResponsiblePerson: "Иванов И.И.",
		Phone:             "+7 900 000-00-00",
		Purpose:           "Командировка",
		Route:             "Офис - аэропорт",
	}
}

func (s *ApplicationServiceSuite) create(unit string) *entities.Application {
	app, err := s.service.CreateApplication(s.ctx, dto.CreateApplicationDTO{ApplicationFieldsDTO: validFields(unit)})
	s.Require().NoError(err)
	return app
}

// assertHistoryInvariants: статус равен newStatus последней записи, даты не убывают.
func (s *ApplicationServiceSuite) assertHistoryInvariants(id uint64) *entities.Application {
	app, err := s.service.FindApplication(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotEmpty(app.StatusHistory)
	s.Equal(app.Status.String(), app.LastHistory().NewStatus)
	for i := 1; i < len(app.StatusHistory); i++ {
		s.False(app.StatusHistory[i].ChangedDate.Before(app.StatusHistory[i-1].ChangedDate))
	}
	return app
}

func (s *ApplicationServiceSuite) TestCreate() {
	app := s.create("Logistics")

	s.Equal(entities.StatusCreatedOrModified, app.Status)
	s.Regexp(numberFormat, app.Number)
	s.Require().Len(app.StatusHistory, 1)
	s.Equal("unset", app.StatusHistory[0].OldStatus)
	s.Equal("CreatedOrModified", app.StatusHistory[0].NewStatus)
	s.Equal(workflow.SystemActor, app.StatusHistory[0].ChangedBy)
	s.Equal(app.CreatedAt, app.StatusHistory[0].ChangedDate)

	stored := s.assertHistoryInvariants(app.ID)
	s.Equal(app.Number, stored.Number)
	s.Equal(1.0, counterValue(s.T(), s.registry, "transport_requests_workflow_applications_created_total"))
}

func (s *ApplicationServiceSuite) TestCreateKeepsTemplateNumber() {
	tmpl := s.service.NewApplicationTemplate(s.ctx)
	s.Regexp(numberFormat, tmpl.Number)
	s.Equal("CreatedOrModified", tmpl.Status)

	app, err := s.service.CreateApplication(s.ctx, dto.CreateApplicationDTO{
		Number:               null.StringFrom(tmpl.Number),
		ApplicationFieldsDTO: validFields("Logistics"),
	})
	s.Require().NoError(err)
	s.Equal(tmpl.Number, app.Number)
}

func (s *ApplicationServiceSuite) TestCreateValidationWritesNothing() {
	fields := validFields("  ")
	fields.Route = ""
	_, err := s.service.CreateApplication(s.ctx, dto.CreateApplicationDTO{ApplicationFieldsDTO: fields})

	var vErr *apperrors.ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Contains(vErr.Fields, "organization_unit")
	s.Contains(vErr.Fields, "route")

	apps, err := s.service.GetApplications(s.ctx, entities.ApplicationFilter{})
	s.Require().NoError(err)
	s.Empty(apps)
}

func (s *ApplicationServiceSuite) TestCreateTripWindow() {
	fields := validFields("Logistics")
	fields.TripStart = null.TimeFrom(time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC))
	fields.TripEnd = null.TimeFrom(time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC))

	_, err := s.service.CreateApplication(s.ctx, dto.CreateApplicationDTO{ApplicationFieldsDTO: fields})
	var vErr *apperrors.ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Contains(vErr.Fields, "trip_end")
}

func (s *ApplicationServiceSuite) TestApproveThenReject() {
	app := s.create("Logistics")

	_, err := s.service.ApproveApplication(s.ctx, app.ID, dto.CommentDTO{})
	s.Require().NoError(err)
	rejected, err := s.service.RejectApplication(s.ctx, app.ID, dto.CommentDTO{Comment: null.StringFrom("нет машин")})
	s.Require().NoError(err)

	s.Equal(entities.StatusRejectedByDirector, rejected.Status)
	stored := s.assertHistoryInvariants(app.ID)
	s.Require().Len(stored.StatusHistory, 3)

	approve, reject := stored.StatusHistory[1], stored.StatusHistory[2]
	s.Equal("CreatedOrModified", approve.OldStatus)
	s.Equal("Approved", approve.NewStatus)
	s.Equal("Утвердить", approve.Comment)
	s.Equal("Approved", reject.OldStatus)
	s.Equal("RejectedByDirector", reject.NewStatus)
	s.Equal("нет машин", reject.Comment)
	s.Equal(uint64(3), stored.Version)
}

func (s *ApplicationServiceSuite) TestBlankCommentsFallBackToDefault() {
	app := s.create("Logistics")

	_, err := s.service.ApproveApplication(s.ctx, app.ID, dto.CommentDTO{Comment: null.StringFrom("   ")})
	s.Require().NoError(err)
	_, err = s.service.ChangeStatus(s.ctx, app.ID, dto.ChangeStatusDTO{Status: "Completed", Comment: null.StringFrom(" \t")})
	s.Require().NoError(err)

	stored := s.assertHistoryInvariants(app.ID)
	s.Require().Len(stored.StatusHistory, 3)
	s.Equal(workflow.OpApprove.DefaultComment, stored.StatusHistory[1].Comment)
	s.Equal(workflow.CommentChange, stored.StatusHistory[2].Comment)
}

func (s *ApplicationServiceSuite) TestLongActorIsTruncatedInHistory() {
	app := s.create("Logistics")
	ctx := utils.WithActor(s.ctx, strings.Repeat("Ж", workflow.MaxActorLength+50))

	_, err := s.service.ApproveApplication(ctx, app.ID, dto.CommentDTO{})
	s.Require().NoError(err)

	stored := s.assertHistoryInvariants(app.ID)
	s.Len([]rune(stored.LastHistory().ChangedBy), workflow.MaxActorLength)
}

func (s *ApplicationServiceSuite) TestSameStatusIsStillLogged() {
	app := s.create("Logistics")

	_, err := s.service.ChangeStatus(s.ctx, app.ID, dto.ChangeStatusDTO{Status: "CreatedOrModified"})
	s.Require().NoError(err)

	stored := s.assertHistoryInvariants(app.ID)
	s.Require().Len(stored.StatusHistory, 2)
	s.Equal(stored.StatusHistory[1].OldStatus, stored.StatusHistory[1].NewStatus)
	s.Equal(workflow.CommentChange, stored.StatusHistory[1].Comment)
}

func (s *ApplicationServiceSuite) TestDeleteIsLogical() {
	keep := s.create("Logistics")
	gone := s.create("Logistics")

	deleted, err := s.service.DeleteApplication(utils.WithActor(s.ctx, "Петров П.П."), gone.ID)
	s.Require().NoError(err)
	s.Equal(entities.StatusDeleted, deleted.Status)

	apps, err := s.service.GetApplications(s.ctx, entities.ApplicationFilter{})
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(keep.ID, apps[0].ID)

	stored := s.assertHistoryInvariants(gone.ID)
	s.Equal(entities.StatusDeleted, stored.Status)
	s.Equal("CreatedOrModified", stored.LastHistory().OldStatus)
	s.Equal(workflow.SystemActor, stored.LastHistory().ChangedBy)
}

func (s *ApplicationServiceSuite) TestOperationsOnMissingApplication() {
	_, err := s.service.ApproveApplication(s.ctx, 404, dto.CommentDTO{})
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.DeleteApplication(s.ctx, 404)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.UpdateApplication(s.ctx, 404, dto.UpdateApplicationDTO{ApplicationFieldsDTO: validFields("X")})
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.GetHistory(s.ctx, 404)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ApplicationServiceSuite) TestEditPreservesWriteOnceFields() {
	app := s.create("Logistics")

	fields := validFields("Finance")
	updated, err := s.service.UpdateApplication(s.ctx, app.ID, dto.UpdateApplicationDTO{
		Number:               null.StringFrom("20990101-9999"),
		CreatedAt:            null.TimeFrom(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)),
		ApplicationFieldsDTO: fields,
	})
	s.Require().NoError(err)

	s.Equal(app.Number, updated.Number)
	s.Equal(app.CreatedAt, updated.CreatedAt)
	s.Equal("Finance", updated.OrganizationUnit)
	s.True(updated.UpdatedAt.After(app.UpdatedAt))

	stored := s.assertHistoryInvariants(app.ID)
	s.Equal(app.Number, stored.Number)
	s.Equal(app.CreatedAt, stored.CreatedAt)
	s.Len(stored.StatusHistory, 1, "правка без смены статуса не пишет историю")
}

func (s *ApplicationServiceSuite) TestEditWithStatusChangeWritesHistory() {
	app := s.create("Logistics")
	actorCtx := utils.WithActor(s.ctx, "Петров П.П.")

	updated, err := s.service.UpdateApplication(actorCtx, app.ID, dto.UpdateApplicationDTO{
		Status:               "Approved",
		ApplicationFieldsDTO: validFields("Logistics"),
		DispatchFieldsDTO:    dto.DispatchFieldsDTO{DriverName: null.StringFrom("Сидоров")},
	})
	s.Require().NoError(err)
	s.Equal(entities.StatusApproved, updated.Status)
	s.Require().NotNil(updated.DriverName)

	stored := s.assertHistoryInvariants(app.ID)
	s.Require().Len(stored.StatusHistory, 2)
	s.Equal("Петров П.П.", stored.LastHistory().ChangedBy)
	s.Equal(workflow.CommentEdit, stored.LastHistory().Comment)
}

func (s *ApplicationServiceSuite) TestEditVersionConflict() {
	app := s.create("Logistics")
	_, err := s.service.ApproveApplication(s.ctx, app.ID, dto.CommentDTO{})
	s.Require().NoError(err)

	_, err = s.service.UpdateApplication(s.ctx, app.ID, dto.UpdateApplicationDTO{
		Version:              null.Uint64From(app.Version),
		ApplicationFieldsDTO: validFields("Finance"),
	})
	s.ErrorIs(err, apperrors.ErrConcurrencyConflict)

	stored := s.assertHistoryInvariants(app.ID)
	s.Equal("Logistics", stored.OrganizationUnit)
}

func (s *ApplicationServiceSuite) TestAssignVehicleKeepsUnsentDispatchFields() {
	app := s.create("Logistics")
	_, err := s.service.UpdateApplication(s.ctx, app.ID, dto.UpdateApplicationDTO{
		ApplicationFieldsDTO: validFields("Logistics"),
		DispatchFieldsDTO:    dto.DispatchFieldsDTO{DispatcherName: null.StringFrom("Диспетчер")},
	})
	s.Require().NoError(err)

	assigned, err := s.service.AssignVehicle(s.ctx, app.ID, dto.AssignVehicleDTO{
		DispatchFieldsDTO: dto.DispatchFieldsDTO{
			DriverName:    null.StringFrom("Сидоров"),
			VehicleNumber: null.StringFrom("А123ВС"),
		},
	})
	s.Require().NoError(err)
	s.Equal(entities.StatusAssignedToVehicle, assigned.Status)
	s.Equal("Диспетчер", *assigned.DispatcherName)
	s.Equal("Сидоров", *assigned.DriverName)
	s.Equal("А123ВС", *assigned.VehicleNumber)

	completed, err := s.service.CompleteApplication(s.ctx, app.ID, dto.CommentDTO{})
	s.Require().NoError(err)
	s.Equal(entities.StatusCompleted, completed.Status)
	s.Equal("Исполнение", completed.LastHistory().Comment)
}

func (s *ApplicationServiceSuite) TestChangeStatusRejectsUnknownStatus() {
	app := s.create("Logistics")
	_, err := s.service.ChangeStatus(s.ctx, app.ID, dto.ChangeStatusDTO{Status: "Archived"})
	s.True(apperrors.IsValidation(err))

	stored := s.assertHistoryInvariants(app.ID)
	s.Len(stored.StatusHistory, 1)
}

func (s *ApplicationServiceSuite) TestStrictPolicyBlocksIllegalTransition() {
	strict := s.newService(workflow.NewTablePolicy(workflow.DefaultDispatchTable()))
	app, err := strict.CreateApplication(s.ctx, dto.CreateApplicationDTO{ApplicationFieldsDTO: validFields("Logistics")})
	s.Require().NoError(err)

	_, err = strict.CompleteApplication(s.ctx, app.ID, dto.CommentDTO{})
	s.ErrorIs(err, apperrors.ErrTransitionNotAllowed)

	stored := s.assertHistoryInvariants(app.ID)
	s.Equal(entities.StatusCreatedOrModified, stored.Status)
	s.Len(stored.StatusHistory, 1)
}

func (s *ApplicationServiceSuite) TestConcurrentTransitionsKeepHistoryConsistent() {
	app := s.create("Logistics")
	targets := []string{"Approved", "AssignedToVehicle", "InProgress", "Completed"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.ChangeStatus(s.ctx, app.ID, dto.ChangeStatusDTO{Status: targets[i%len(targets)]})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	stored := s.assertHistoryInvariants(app.ID)
	s.Len(stored.StatusHistory, 21)
	for i := 1; i < len(stored.StatusHistory); i++ {
		s.Equal(stored.StatusHistory[i-1].NewStatus, stored.StatusHistory[i].OldStatus)
	}
	s.Equal(uint64(21), stored.Version)
}

func (s *ApplicationServiceSuite) TestFailuresAreCounted() {
	_, _ = s.service.ApproveApplication(s.ctx, 404, dto.CommentDTO{})

	count, err := testutil.GatherAndCount(s.registry, "transport_requests_workflow_operation_errors_total")
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Equal(1.0, counterValue(s.T(), s.registry, "transport_requests_workflow_operation_errors_total"))
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

// counterValue суммирует значения счётчика name по всем меткам.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
