package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"transport-request-system/internal/entities"
	apperrors "transport-request-system/pkg/errors"
)

// ApplicationRepositoryInterface - хранилище заявок.
// Все изменения выполняются только внутри RunInTx.
type ApplicationRepositoryInterface interface {
	// FindApplication возвращает заявку вместе с историей, в том числе удалённую.
	FindApplication(ctx context.Context, id uint64) (*entities.Application, error)
	// GetApplications возвращает неудалённые заявки по фильтру, новые сверху. История не загружается.
	GetApplications(ctx context.Context, filter entities.ApplicationFilter) ([]entities.Application, error)
	GetHistory(ctx context.Context, applicationID uint64) ([]entities.StatusHistory, error)
	RunInTx(ctx context.Context, fn func(tx ApplicationTx) error) error
}

// ApplicationTx - операции записи в рамках одной транзакции.
type ApplicationTx interface {
	// FindForUpdate блокирует строку заявки до конца транзакции.
	FindForUpdate(ctx context.Context, id uint64) (*entities.Application, error)
	// CreateApplication присваивает app.ID и app.Version.
	CreateApplication(ctx context.Context, app *entities.Application) error
	// UpdateApplication перезаписывает заявку, если её версия всё ещё равна expectedVersion.
	// number и created_at не перезаписываются никогда.
	UpdateApplication(ctx context.Context, app *entities.Application, expectedVersion uint64) error
	// CreateHistory присваивает entry.ID.
	CreateHistory(ctx context.Context, entry *entities.StatusHistory) error
}

const (
	applicationsTable = "applications"
	historyTable      = "application_status_history"

	pgForeignKeyViolation = "23503"
)

var applicationColumns = []string{
	"id", "number", "status", "application_date", "trip_start", "trip_end",
	"organization_unit", "responsible_person", "phone", "purpose", "passengers", "route", "notes",
	"dispatcher_name", "dispatcher_phone", "driver_name", "driver_phone",
	"vehicle_brand", "vehicle_number", "vehicle_color", "dispatcher_notes",
	"created_at", "updated_at", "version",
}

var historyColumns = []string{
	"id", "application_id", "old_status", "new_status", "changed_by", "comment", "changed_date",
}

type applicationRepository struct {
	storage   *pgxpool.Pool
	txManager TxManagerInterface
	psql      sq.StatementBuilderType
}

func NewApplicationRepository(storage *pgxpool.Pool, txManager TxManagerInterface) ApplicationRepositoryInterface {
	return &applicationRepository{
		storage:   storage,
		txManager: txManager,
		psql:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *applicationRepository) FindApplication(ctx context.Context, id uint64) (*entities.Application, error) {
	return findApplication(ctx, r.psql, r.storage, id, false)
}

func (r *applicationRepository) GetApplications(ctx context.Context, filter entities.ApplicationFilter) ([]entities.Application, error) {
	builder := r.psql.Select(applicationColumns...).
		From(applicationsTable).
		Where(sq.NotEq{"status": entities.StatusDeleted.String()})

	builder = applyApplicationFilter(builder, filter).OrderBy("created_at DESC", "id DESC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperrors.NewStorageError("сборка запроса заявок", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("выборка заявок", err)
	}
	defer rows.Close()

	applications := make([]entities.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("сканирование заявки", err)
		}
		applications = append(applications, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("выборка заявок", err)
	}
	return applications, nil
}

func (r *applicationRepository) GetHistory(ctx context.Context, applicationID uint64) ([]entities.StatusHistory, error) {
	var exists bool
	err := r.storage.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, applicationID).Scan(&exists)
	if err != nil {
		return nil, apperrors.NewStorageError("проверка заявки", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	return selectHistory(ctx, r.psql, r.storage, applicationID)
}

// RunInTx - сбои самой транзакции приходят из TxManager как StorageError,
// ошибки из fn возвращаются как есть.
func (r *applicationRepository) RunInTx(ctx context.Context, fn func(tx ApplicationTx) error) error {
	return r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&pgApplicationTx{tx: tx, psql: r.psql})
	})
}

type pgApplicationTx struct {
	tx   pgx.Tx
	psql sq.StatementBuilderType
}

func (t *pgApplicationTx) FindForUpdate(ctx context.Context, id uint64) (*entities.Application, error) {
	return findApplication(ctx, t.psql, t.tx, id, true)
}

func (t *pgApplicationTx) CreateApplication(ctx context.Context, app *entities.Application) error {
	query := `
		INSERT INTO applications (
			number, status, application_date, trip_start, trip_end,
			organization_unit, responsible_person, phone, purpose, passengers, route, notes,
			dispatcher_name, dispatcher_phone, driver_name, driver_phone,
			vehicle_brand, vehicle_number, vehicle_color, dispatcher_notes,
			created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, 1)
		RETURNING id, version`

	err := t.tx.QueryRow(ctx, query,
		app.Number, app.Status.String(), app.ApplicationDate, app.TripStart, app.TripEnd,
		app.OrganizationUnit, app.ResponsiblePerson, app.Phone, app.Purpose, app.Passengers, app.Route, app.Notes,
		app.DispatcherName, app.DispatcherPhone, app.DriverName, app.DriverPhone,
		app.VehicleBrand, app.VehicleNumber, app.VehicleColor, app.DispatcherNotes,
		app.CreatedAt, app.UpdatedAt,
	).Scan(&app.ID, &app.Version)
	if err != nil {
		return apperrors.NewStorageError("создание заявки", err)
	}
	return nil
}

func (t *pgApplicationTx) UpdateApplication(ctx context.Context, app *entities.Application, expectedVersion uint64) error {
	query := `
		UPDATE applications SET
			status = $3, application_date = $4, trip_start = $5, trip_end = $6,
			organization_unit = $7, responsible_person = $8, phone = $9, purpose = $10,
			passengers = $11, route = $12, notes = $13,
			dispatcher_name = $14, dispatcher_phone = $15, driver_name = $16, driver_phone = $17,
			vehicle_brand = $18, vehicle_number = $19, vehicle_color = $20, dispatcher_notes = $21,
			updated_at = $22, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`

	var version uint64
	err := t.tx.QueryRow(ctx, query,
		app.ID, expectedVersion,
		app.Status.String(), app.ApplicationDate, app.TripStart, app.TripEnd,
		app.OrganizationUnit, app.ResponsiblePerson, app.Phone, app.Purpose,
		app.Passengers, app.Route, app.Notes,
		app.DispatcherName, app.DispatcherPhone, app.DriverName, app.DriverPhone,
		app.VehicleBrand, app.VehicleNumber, app.VehicleColor, app.DispatcherNotes,
		app.UpdatedAt,
	).Scan(&version)
	if err == nil {
		app.Version = version
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewStorageError("обновление заявки", err)
	}

	// ни одной строки: либо заявки нет, либо её уже обновили
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, app.ID).Scan(&exists); err != nil {
		return apperrors.NewStorageError("проверка заявки", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrConcurrencyConflict
}

func (t *pgApplicationTx) CreateHistory(ctx context.Context, entry *entities.StatusHistory) error {
	query := `
		INSERT INTO application_status_history (application_id, old_status, new_status, changed_by, comment, changed_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := t.tx.QueryRow(ctx, query,
		entry.ApplicationID, entry.OldStatus, entry.NewStatus, entry.ChangedBy, entry.Comment, entry.ChangedDate,
	).Scan(&entry.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperrors.ErrNotFound
		}
		return apperrors.NewStorageError("запись истории", err)
	}
	return nil
}

func findApplication(ctx context.Context, psql sq.StatementBuilderType, q querier, id uint64, forUpdate bool) (*entities.Application, error) {
	builder := psql.Select(applicationColumns...).From(applicationsTable).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperrors.NewStorageError("сборка запроса заявки", err)
	}

	app, err := scanApplication(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStorageError("поиск заявки", err)
	}

	app.StatusHistory, err = selectHistory(ctx, psql, q, id)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func selectHistory(ctx context.Context, psql sq.StatementBuilderType, q querier, applicationID uint64) ([]entities.StatusHistory, error) {
	query, args, err := psql.Select(historyColumns...).
		From(historyTable).
		Where(sq.Eq{"application_id": applicationID}).
		OrderBy("changed_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, apperrors.NewStorageError("сборка запроса истории", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("выборка истории", err)
	}
	defer rows.Close()

	history := make([]entities.StatusHistory, 0)
	for rows.Next() {
		var h entities.StatusHistory
		if err := rows.Scan(&h.ID, &h.ApplicationID, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Comment, &h.ChangedDate); err != nil {
			return nil, apperrors.NewStorageError("сканирование истории", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("выборка истории", err)
	}
	return history, nil
}

// applyApplicationFilter переводит фильтр в условия WHERE.
// strpos вместо LIKE: поиск по подразделению регистрозависимый и без спецсимволов шаблона.
func applyApplicationFilter(builder sq.SelectBuilder, filter entities.ApplicationFilter) sq.SelectBuilder {
	if filter.DateFrom != nil {
		builder = builder.Where(sq.GtOrEq{"application_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		builder = builder.Where(sq.LtOrEq{"application_date": *filter.DateTo})
	}
	if filter.OrganizationUnit != "" {
		builder = builder.Where(sq.Expr("strpos(organization_unit, ?) > 0", filter.OrganizationUnit))
	}
	if len(filter.SelectedStatuses) > 0 {
		names := make([]string, 0, len(filter.SelectedStatuses))
		for _, s := range filter.SelectedStatuses {
			names = append(names, s.String())
		}
		builder = builder.Where(sq.Eq{"status": names})
	}
	return builder
}

func scanApplication(row rowScanner) (*entities.Application, error) {
	var app entities.Application
	var status string
	err := row.Scan(
		&app.ID, &app.Number, &status, &app.ApplicationDate, &app.TripStart, &app.TripEnd,
		&app.OrganizationUnit, &app.ResponsiblePerson, &app.Phone, &app.Purpose, &app.Passengers, &app.Route, &app.Notes,
		&app.DispatcherName, &app.DispatcherPhone, &app.DriverName, &app.DriverPhone,
		&app.VehicleBrand, &app.VehicleNumber, &app.VehicleColor, &app.DispatcherNotes,
		&app.CreatedAt, &app.UpdatedAt, &app.Version,
	)
	if err != nil {
		return nil, err
	}
	if app.Status, err = entities.ParseApplicationStatus(status); err != nil {
		return nil, fmt.Errorf("заявка %d: %w", app.ID, err)
	}
	return &app, nil
}
