package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"transport-request-system/internal/entities"
)

// ApplicationFieldsDTO - поля заявки, которые заполняет заявитель.
type ApplicationFieldsDTO struct {
	ApplicationDate   Date        `json:"application_date" validate:"required"`
	TripStart         null.Time   `json:"trip_start"`
	TripEnd           null.Time   `json:"trip_end"`
	OrganizationUnit  string      `json:"organization_unit" validate:"required,notblank,max=100"`
	ResponsiblePerson string      `json:"responsible_person" validate:"required,notblank,max=100"`
	Phone             string      `json:"phone" validate:"required,phone,max=20"`
	Purpose           string      `json:"purpose" validate:"required,notblank,max=200"`
	Passengers        null.String `json:"passengers" validate:"omitempty,max=20"`
	Route             string      `json:"route" validate:"required,notblank,max=500"`
	Notes             null.String `json:"notes" validate:"omitempty,max=1000"`
}

// DispatchFieldsDTO - поля, которые заполняет диспетчер при назначении ТС.
type DispatchFieldsDTO struct {
	DispatcherName  null.String `json:"dispatcher_name" validate:"omitempty,max=100"`
	DispatcherPhone null.String `json:"dispatcher_phone" validate:"omitempty,phone,max=20"`
	DriverName      null.String `json:"driver_name" validate:"omitempty,max=100"`
	DriverPhone     null.String `json:"driver_phone" validate:"omitempty,phone,max=20"`
	VehicleBrand    null.String `json:"vehicle_brand" validate:"omitempty,max=50"`
	VehicleNumber   null.String `json:"vehicle_number" validate:"omitempty,max=20"`
	VehicleColor    null.String `json:"vehicle_color" validate:"omitempty,max=30"`
	DispatcherNotes null.String `json:"dispatcher_notes" validate:"omitempty,max=1000"`
}

// AnchorDates ставит дату заявки без времени на полночь в часовом поясе сервиса,
// в том же поясе, что и фильтр списка.
func (f *ApplicationFieldsDTO) AnchorDates(loc *time.Location) {
	f.ApplicationDate = f.ApplicationDate.In(loc)
}

type CreateApplicationDTO struct {
	// Number можно передать из шаблона; если пусто, номер генерируется.
	Number null.String `json:"number" validate:"omitempty,application_number"`
	ApplicationFieldsDTO
}

// UpdateApplicationDTO - полное редактирование заявки.
// Number и CreatedAt принимаются, но игнорируются: эти поля не меняются после создания.
type UpdateApplicationDTO struct {
	Number    null.String `json:"number"`
	CreatedAt null.Time   `json:"created_at"`
	// Status пустой - статус не меняется.
	Status  string      `json:"status" validate:"omitempty,application_status"`
	Comment null.String `json:"comment" validate:"omitempty,max=500"`
	// Version - версия, которую видел клиент; при расхождении вернётся конфликт.
	Version null.Uint64 `json:"version"`
	ApplicationFieldsDTO
	DispatchFieldsDTO
}

type CommentDTO struct {
	Comment null.String `json:"comment" validate:"omitempty,max=500"`
}

type AssignVehicleDTO struct {
	Comment null.String `json:"comment" validate:"omitempty,max=500"`
	DispatchFieldsDTO
}

type ChangeStatusDTO struct {
	Status  string      `json:"status" validate:"required,application_status"`
	Comment null.String `json:"comment" validate:"omitempty,max=500"`
}

// ApplicationTemplateDTO - заготовка формы создания заявки.
type ApplicationTemplateDTO struct {
	Number          string    `json:"number"`
	ApplicationDate time.Time `json:"application_date"`
	Status          string    `json:"status"`
	StatusName      string    `json:"status_name"`
}

type ApplicationResponseDTO struct {
	ID                uint64     `json:"id"`
	Number            string     `json:"number"`
	Status            string     `json:"status"`
	StatusName        string     `json:"status_name"`
	ApplicationDate   time.Time  `json:"application_date"`
	TripStart         *time.Time `json:"trip_start"`
	TripEnd           *time.Time `json:"trip_end"`
	OrganizationUnit  string     `json:"organization_unit"`
	ResponsiblePerson string     `json:"responsible_person"`
	Phone             string     `json:"phone"`
	Purpose           string     `json:"purpose"`
	Passengers        *string    `json:"passengers"`
	Route             string     `json:"route"`
	Notes             *string    `json:"notes"`
	DispatcherName    *string    `json:"dispatcher_name"`
	DispatcherPhone   *string    `json:"dispatcher_phone"`
	DriverName        *string    `json:"driver_name"`
	DriverPhone       *string    `json:"driver_phone"`
	VehicleBrand      *string    `json:"vehicle_brand"`
	VehicleNumber     *string    `json:"vehicle_number"`
	VehicleColor      *string    `json:"vehicle_color"`
	DispatcherNotes   *string    `json:"dispatcher_notes"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           uint64     `json:"version"`

	StatusHistory []StatusHistoryDTO `json:"status_history,omitempty"`
}

type ApplicationListResponseDTO struct {
	List       []ApplicationResponseDTO `json:"list"`
	TotalCount uint64                   `json:"total_count"`
}

func NewApplicationResponse(app *entities.Application) ApplicationResponseDTO {
	resp := ApplicationResponseDTO{
		ID:                app.ID,
		Number:            app.Number,
		Status:            app.Status.String(),
		StatusName:        app.Status.DisplayName(),
		ApplicationDate:   app.ApplicationDate,
		TripStart:         app.TripStart,
		TripEnd:           app.TripEnd,
		OrganizationUnit:  app.OrganizationUnit,
		ResponsiblePerson: app.ResponsiblePerson,
		Phone:             app.Phone,
		Purpose:           app.Purpose,
		Passengers:        app.Passengers,
		Route:             app.Route,
		Notes:             app.Notes,
		DispatcherName:    app.DispatcherName,
		DispatcherPhone:   app.DispatcherPhone,
		DriverName:        app.DriverName,
		DriverPhone:       app.DriverPhone,
		VehicleBrand:      app.VehicleBrand,
		VehicleNumber:     app.VehicleNumber,
		VehicleColor:      app.VehicleColor,
		DispatcherNotes:   app.DispatcherNotes,
		CreatedAt:         app.CreatedAt,
		UpdatedAt:         app.UpdatedAt,
		Version:           app.Version,
	}
	if len(app.StatusHistory) > 0 {
		resp.StatusHistory = NewStatusHistoryList(app.StatusHistory)
	}
	return resp
}

func NewApplicationList(apps []entities.Application) ApplicationListResponseDTO {
	list := make([]ApplicationResponseDTO, 0, len(apps))
	for i := range apps {
		list = append(list, NewApplicationResponse(&apps[i]))
	}
	return ApplicationListResponseDTO{List: list, TotalCount: uint64(len(list))}
}
