package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/entities"
	"transport-request-system/internal/services"
	apperrors "transport-request-system/pkg/errors"
	"transport-request-system/pkg/utils"
)

type ApplicationController struct {
	applicationService services.ApplicationServiceInterface
	location           *time.Location
	logger             *zap.Logger
}

func NewApplicationController(applicationService services.ApplicationServiceInterface, location *time.Location, logger *zap.Logger) *ApplicationController {
	if location == nil {
		location = time.Local
	}
	return &ApplicationController{applicationService: applicationService, location: location, logger: logger}
}

func (c *ApplicationController) GetApplications(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter, err := utils.ParseApplicationFilter(ctx.QueryParams(), c.location)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	c.logger.Debug("Запрос списка заявок", zap.Any("filter", filter))

	apps, err := c.applicationService.GetApplications(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "xlsx" {
		return c.respondWithXLSX(ctx, apps)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationList(apps), "Список заявок успешно получен", http.StatusOK)
}

func (c *ApplicationController) GetTemplate(ctx echo.Context) error {
	template := c.applicationService.NewApplicationTemplate(ctx.Request().Context())
	return utils.SuccessResponse(ctx, template, "Шаблон заявки сформирован", http.StatusOK)
}

func (c *ApplicationController) CreateApplication(ctx echo.Context) error {
	var payload dto.CreateApplicationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	payload.AnchorDates(c.location)

	app, err := c.applicationService.CreateApplication(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Заявка успешно создана", http.StatusCreated)
}

func (c *ApplicationController) FindApplication(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	app, err := c.applicationService.FindApplication(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Заявка успешно найдена", http.StatusOK)
}

func (c *ApplicationController) UpdateApplication(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.UpdateApplicationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	payload.AnchorDates(c.location)

	app, err := c.applicationService.UpdateApplication(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Заявка успешно обновлена", http.StatusOK)
}

func (c *ApplicationController) DeleteApplication(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	app, err := c.applicationService.DeleteApplication(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Заявка удалена", http.StatusOK)
}

func (c *ApplicationController) ApproveApplication(ctx echo.Context) error {
	return c.withComment(ctx, c.applicationService.ApproveApplication, "Заявка утверждена")
}

func (c *ApplicationController) RejectApplication(ctx echo.Context) error {
	return c.withComment(ctx, c.applicationService.RejectApplication, "Заявка отклонена")
}

func (c *ApplicationController) CompleteApplication(ctx echo.Context) error {
	return c.withComment(ctx, c.applicationService.CompleteApplication, "Заявка исполнена")
}

func (c *ApplicationController) AssignVehicle(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.AssignVehicleDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	app, err := c.applicationService.AssignVehicle(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Транспорт назначен", http.StatusOK)
}

func (c *ApplicationController) ChangeStatus(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.ChangeStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	app, err := c.applicationService.ChangeStatus(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), "Статус заявки изменён", http.StatusOK)
}

func (c *ApplicationController) GetHistory(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	history, err := c.applicationService.GetHistory(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewStatusHistoryList(history), "История заявки получена", http.StatusOK)
}

type commentOperation func(ctx context.Context, id uint64, payload dto.CommentDTO) (*entities.Application, error)

func (c *ApplicationController) withComment(ctx echo.Context, operation commentOperation, message string) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.CommentDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	app, err := operation(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewApplicationResponse(app), message, http.StatusOK)
}

func parseID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный ID",
			fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err),
			map[string]interface{}{"param": ctx.Param("id")},
		)
	}
	return id, nil
}

var applicationExportHeaders = []string{
	"№", "Номер заявки", "Дата заявки", "Статус", "Подразделение", "Ответственный", "Телефон",
	"Цель поездки", "Пассажиры", "Маршрут", "Начало поездки", "Окончание поездки",
	"Водитель", "Телефон водителя", "Марка ТС", "Госномер", "Примечание",
}

func applicationToRow(i int, app entities.Application) []interface{} {
	const dateFmt, dateTimeFmt = "02.01.2006", "02.01.2006 15:04"
	formatTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(dateTimeFmt)
	}
	str := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	return []interface{}{
		i + 1, app.Number, app.ApplicationDate.Format(dateFmt), app.Status.DisplayName(),
		app.OrganizationUnit, app.ResponsiblePerson, app.Phone, app.Purpose, str(app.Passengers),
		app.Route, formatTime(app.TripStart), formatTime(app.TripEnd),
		str(app.DriverName), str(app.DriverPhone), str(app.VehicleBrand), str(app.VehicleNumber), str(app.Notes),
	}
}

func (c *ApplicationController) respondWithXLSX(ctx echo.Context, apps []entities.Application) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Заявки на транспорт"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := f.SetSheetRow(sheet, "A1", &applicationExportHeaders); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "Q1", style)

	for i, app := range apps {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := applicationToRow(i, app)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
	}
	f.SetColWidth(sheet, "B", "B", 16)
	f.SetColWidth(sheet, "D", "F", 25)
	f.SetColWidth(sheet, "H", "H", 40)
	f.SetColWidth(sheet, "J", "J", 50)
	f.SetColWidth(sheet, "K", "P", 20)

	fileName := fmt.Sprintf("applications_%s.xlsx", time.Now().In(c.location).Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
