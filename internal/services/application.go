package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/entities"
	"transport-request-system/internal/events"
	"transport-request-system/internal/repositories"
	"transport-request-system/internal/workflow"
	apperrors "transport-request-system/pkg/errors"
	"transport-request-system/pkg/eventbus"
	"transport-request-system/pkg/metrics"
	"transport-request-system/pkg/utils"
)

// Validator - проверка DTO по тегам validate (pkg/validation.CustomValidator).
type Validator interface {
	Validate(i interface{}) error
}

type ApplicationServiceInterface interface {
	CreateApplication(ctx context.Context, payload dto.CreateApplicationDTO) (*entities.Application, error)
	UpdateApplication(ctx context.Context, id uint64, payload dto.UpdateApplicationDTO) (*entities.Application, error)
	DeleteApplication(ctx context.Context, id uint64) (*entities.Application, error)
	ApproveApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error)
	RejectApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error)
	AssignVehicle(ctx context.Context, id uint64, payload dto.AssignVehicleDTO) (*entities.Application, error)
	CompleteApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error)
	ChangeStatus(ctx context.Context, id uint64, payload dto.ChangeStatusDTO) (*entities.Application, error)

	FindApplication(ctx context.Context, id uint64) (*entities.Application, error)
	GetApplications(ctx context.Context, filter entities.ApplicationFilter) ([]entities.Application, error)
	GetHistory(ctx context.Context, id uint64) ([]entities.StatusHistory, error)
	NewApplicationTemplate(ctx context.Context) dto.ApplicationTemplateDTO
}

type ApplicationService struct {
	repo      repositories.ApplicationRepositoryInterface
	engine    *workflow.Engine
	recorder  *AuditRecorder
	numbers   *workflow.NumberGenerator
	validator Validator
	bus       *eventbus.Bus
	metrics   *metrics.WorkflowMetrics
	logger    *zap.Logger
}

func NewApplicationService(
	repo repositories.ApplicationRepositoryInterface,
	engine *workflow.Engine,
	recorder *AuditRecorder,
	numbers *workflow.NumberGenerator,
	validator Validator,
	bus *eventbus.Bus,
	metrics *metrics.WorkflowMetrics,
	logger *zap.Logger,
) ApplicationServiceInterface {
	return &ApplicationService{
		repo:      repo,
		engine:    engine,
		recorder:  recorder,
		numbers:   numbers,
		validator: validator,
		bus:       bus,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *ApplicationService) CreateApplication(ctx context.Context, payload dto.CreateApplicationDTO) (*entities.Application, error) {
	const op = "create"
	defer s.metrics.Observe(op)()

	if err := s.validate(&payload, payload.ApplicationFieldsDTO); err != nil {
		return nil, s.fail(op, 0, err)
	}

	actor := utils.ActorFromContext(ctx)
	now := s.engine.Now()

	app := &entities.Application{
		Number:    payload.Number.String,
		Status:    entities.StatusCreatedOrModified,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !payload.Number.Valid || payload.Number.String == "" {
		app.Number = s.numbers.Generate(now)
	}
	applyFields(app, payload.ApplicationFieldsDTO)

	err := s.repo.RunInTx(ctx, func(tx repositories.ApplicationTx) error {
		if err := tx.CreateApplication(ctx, app); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, app, s.engine.Initial(app, actor, workflow.CommentCreate))
	})
	if err != nil {
		return nil, s.fail(op, 0, err)
	}

	s.metrics.Created()
	s.logger.Info("Заявка создана",
		zap.Uint64("applicationID", app.ID),
		zap.String("number", app.Number),
		zap.String("actor", workflow.ResolveActor(actor)),
	)
	s.publish(ctx, op, app.ID, entities.StatusUnset, app.Status.String(), actor)
	return app, nil
}

// UpdateApplication перезаписывает поля заявки. История пишется, только если сменился статус.
func (s *ApplicationService) UpdateApplication(ctx context.Context, id uint64, payload dto.UpdateApplicationDTO) (*entities.Application, error) {
	const op = "update"
	defer s.metrics.Observe(op)()

	if err := s.validate(&payload, payload.ApplicationFieldsDTO); err != nil {
		return nil, s.fail(op, id, err)
	}

	actor := utils.ActorFromContext(ctx)
	var result *entities.Application
	var oldStatus string

	err := s.repo.RunInTx(ctx, func(tx repositories.ApplicationTx) error {
		current, err := tx.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if payload.Version.Valid && payload.Version.Uint64 != current.Version {
			return apperrors.ErrConcurrencyConflict
		}
		oldStatus = current.Status.String()

		target := current.Status
		if payload.Status != "" {
			if target, err = entities.ParseApplicationStatus(payload.Status); err != nil {
				return apperrors.NewValidationError("ошибка валидации данных", map[string]string{"status": err.Error()})
			}
		}

		var updated *entities.Application
		var entry *entities.StatusHistory
		if target != current.Status {
			updated, entry, err = s.engine.Transition(current, target, actor, commentOr(payload.Comment, workflow.CommentEdit))
			if err != nil {
				return err
			}
		} else {
			clone := current.Clone()
			updated = &clone
			s.engine.Touch(updated)
		}

		applyFields(updated, payload.ApplicationFieldsDTO)
		replaceDispatch(updated, payload.DispatchFieldsDTO)

		if err := tx.UpdateApplication(ctx, updated, current.Version); err != nil {
			return err
		}
		if entry != nil {
			if err := s.recorder.Record(ctx, tx, updated, entry); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}

	if oldStatus != result.Status.String() {
		s.metrics.Transition(oldStatus, result.Status.String())
	}
	s.logger.Info("Заявка отредактирована",
		zap.Uint64("applicationID", id),
		zap.String("from", oldStatus),
		zap.String("to", result.Status.String()),
		zap.String("actor", workflow.ResolveActor(actor)),
	)
	s.publish(ctx, op, id, oldStatus, result.Status.String(), actor)
	return result, nil
}

// DeleteApplication - логическое удаление: запись и история остаются в хранилище.
// Удаление всегда записывается от имени "System", кто бы его ни вызвал.
func (s *ApplicationService) DeleteApplication(ctx context.Context, id uint64) (*entities.Application, error) {
	ctx = utils.WithActor(ctx, workflow.SystemActor)
	return s.transition(ctx, id, workflow.OpDelete.Name, workflow.OpDelete.Target, workflow.OpDelete.Comment(""), nil)
}

func (s *ApplicationService) ApproveApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error) {
	return s.runOperation(ctx, id, workflow.OpApprove, &payload, payload.Comment, nil)
}

func (s *ApplicationService) RejectApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error) {
	return s.runOperation(ctx, id, workflow.OpReject, &payload, payload.Comment, nil)
}

func (s *ApplicationService) CompleteApplication(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error) {
	return s.runOperation(ctx, id, workflow.OpComplete, &payload, payload.Comment, nil)
}

// AssignVehicle переводит заявку в AssignedToVehicle и в той же транзакции
// записывает переданные данные диспетчера, водителя и ТС.
func (s *ApplicationService) AssignVehicle(ctx context.Context, id uint64, payload dto.AssignVehicleDTO) (*entities.Application, error) {
	return s.runOperation(ctx, id, workflow.OpAssignVehicle, &payload, payload.Comment, func(app *entities.Application) {
		mergeDispatch(app, payload.DispatchFieldsDTO)
	})
}

func (s *ApplicationService) ChangeStatus(ctx context.Context, id uint64, payload dto.ChangeStatusDTO) (*entities.Application, error) {
	const op = "change_status"
	if err := s.validate(&payload, dto.ApplicationFieldsDTO{}); err != nil {
		return nil, s.fail(op, id, err)
	}
	target, err := entities.ParseApplicationStatus(payload.Status)
	if err != nil {
		return nil, s.fail(op, id, apperrors.NewValidationError("ошибка валидации данных", map[string]string{"status": err.Error()}))
	}
	return s.transition(ctx, id, op, target, commentOr(payload.Comment, workflow.CommentChange), nil)
}

func (s *ApplicationService) FindApplication(ctx context.Context, id uint64) (*entities.Application, error) {
	return s.repo.FindApplication(ctx, id)
}

func (s *ApplicationService) GetApplications(ctx context.Context, filter entities.ApplicationFilter) ([]entities.Application, error) {
	return s.repo.GetApplications(ctx, filter)
}

func (s *ApplicationService) GetHistory(ctx context.Context, id uint64) ([]entities.StatusHistory, error) {
	return s.repo.GetHistory(ctx, id)
}

// NewApplicationTemplate - заготовка формы создания: номер, сегодняшняя дата и начальный статус.
func (s *ApplicationService) NewApplicationTemplate(ctx context.Context) dto.ApplicationTemplateDTO {
	now := s.engine.Now()
	return dto.ApplicationTemplateDTO{
		Number:          s.numbers.Generate(now),
		ApplicationDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Status:          entities.StatusCreatedOrModified.String(),
		StatusName:      entities.StatusCreatedOrModified.DisplayName(),
	}
}

func (s *ApplicationService) runOperation(ctx context.Context, id uint64, operation workflow.Operation, payload interface{}, comment null.String, mutate func(*entities.Application)) (*entities.Application, error) {
	if err := s.validate(payload, dto.ApplicationFieldsDTO{}); err != nil {
		return nil, s.fail(operation.Name, id, err)
	}
	return s.transition(ctx, id, operation.Name, operation.Target, commentOr(comment, operation.DefaultComment), mutate)
}

// transition - общий путь смены статуса: блокировка строки, переход, запись заявки и истории в одной транзакции.
func (s *ApplicationService) transition(ctx context.Context, id uint64, op string, target entities.ApplicationStatus, comment string, mutate func(*entities.Application)) (*entities.Application, error) {
	defer s.metrics.Observe(op)()

	actor := utils.ActorFromContext(ctx)
	var result *entities.Application
	var oldStatus string

	err := s.repo.RunInTx(ctx, func(tx repositories.ApplicationTx) error {
		current, err := tx.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		oldStatus = current.Status.String()

		updated, entry, err := s.engine.Transition(current, target, actor, comment)
		if err != nil {
			return err
		}
		if mutate != nil {
			mutate(updated)
		}

		if err := tx.UpdateApplication(ctx, updated, current.Version); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, updated, entry); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}

	s.metrics.Transition(oldStatus, result.Status.String())
	s.logger.Info("Статус заявки изменён",
		zap.String("operation", op),
		zap.Uint64("applicationID", id),
		zap.String("from", oldStatus),
		zap.String("to", result.Status.String()),
		zap.String("actor", workflow.ResolveActor(actor)),
	)
	s.publish(ctx, op, id, oldStatus, result.Status.String(), actor)
	return result, nil
}

// validate проверяет теги DTO и окно поездки.
func (s *ApplicationService) validate(payload interface{}, fields dto.ApplicationFieldsDTO) error {
	if s.validator != nil {
		if err := s.validator.Validate(payload); err != nil {
			return err
		}
	}
	if fields.TripStart.Valid && fields.TripEnd.Valid && fields.TripEnd.Time.Before(fields.TripStart.Time) {
		return apperrors.NewValidationError("ошибка валидации данных", map[string]string{
			"trip_end": "окончание поездки не может быть раньше начала",
		})
	}
	return nil
}

func (s *ApplicationService) fail(op string, id uint64, err error) error {
	kind := errorKind(err)
	s.metrics.Failure(op, kind)

	fields := []zap.Field{zap.String("operation", op), zap.Uint64("applicationID", id), zap.Error(err)}
	if kind == "storage" || kind == "internal" {
		s.logger.Error("Операция с заявкой не выполнена", fields...)
	} else {
		s.logger.Warn("Операция с заявкой отклонена", fields...)
	}
	return err
}

func (s *ApplicationService) publish(ctx context.Context, op string, id uint64, oldStatus, newStatus, actor string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.ApplicationChangedEvent{
		ApplicationID: id,
		Operation:     op,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		Actor:         workflow.ResolveActor(actor),
	})
}

func errorKind(err error) string {
	var storageErr *apperrors.StorageError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case apperrors.IsValidation(err):
		return "validation"
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrTransitionNotAllowed):
		return "transition"
	case errors.As(err, &storageErr):
		return "storage"
	case errors.Is(err, apperrors.ErrHistoryOutOfOrder):
		return "invariant"
	default:
		return "internal"
	}
}

// commentOr - общее правило для всех операций: отсутствующий или пустой комментарий
// заменяется комментарием по умолчанию.
func commentOr(comment null.String, fallback string) string {
	if !comment.Valid {
		return fallback
	}
	return workflow.Operation{DefaultComment: fallback}.Comment(comment.String)
}

func applyFields(app *entities.Application, f dto.ApplicationFieldsDTO) {
	app.ApplicationDate = f.ApplicationDate.Time
	app.TripStart = f.TripStart.Ptr()
	app.TripEnd = f.TripEnd.Ptr()
	app.OrganizationUnit = strings.TrimSpace(f.OrganizationUnit)
	app.ResponsiblePerson = strings.TrimSpace(f.ResponsiblePerson)
	app.Phone = strings.TrimSpace(f.Phone)
	app.Purpose = strings.TrimSpace(f.Purpose)
	app.Passengers = f.Passengers.Ptr()
	app.Route = strings.TrimSpace(f.Route)
	app.Notes = f.Notes.Ptr()
}

// replaceDispatch - полная перезапись полей диспетчера (редактирование).
func replaceDispatch(app *entities.Application, d dto.DispatchFieldsDTO) {
	app.DispatcherName = d.DispatcherName.Ptr()
	app.DispatcherPhone = d.DispatcherPhone.Ptr()
	app.DriverName = d.DriverName.Ptr()
	app.DriverPhone = d.DriverPhone.Ptr()
	app.VehicleBrand = d.VehicleBrand.Ptr()
	app.VehicleNumber = d.VehicleNumber.Ptr()
	app.VehicleColor = d.VehicleColor.Ptr()
	app.DispatcherNotes = d.DispatcherNotes.Ptr()
}

// mergeDispatch меняет только переданные поля (назначение ТС).
func mergeDispatch(app *entities.Application, d dto.DispatchFieldsDTO) {
	set := func(dst **string, v null.String) {
		if v.Valid {
			*dst = v.Ptr()
		}
	}
	set(&app.DispatcherName, d.DispatcherName)
	set(&app.DispatcherPhone, d.DispatcherPhone)
	set(&app.DriverName, d.DriverName)
	set(&app.DriverPhone, d.DriverPhone)
	set(&app.VehicleBrand, d.VehicleBrand)
	set(&app.VehicleNumber, d.VehicleNumber)
	set(&app.VehicleColor, d.VehicleColor)
	set(&app.DispatcherNotes, d.DispatcherNotes)
}
