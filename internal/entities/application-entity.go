package entities

import "time"

// Application - заявка на транспортное обслуживание.
// Number и CreatedAt записываются один раз при создании.
type Application struct {
	ID              uint64            `db:"id"`
	Number          string            `db:"number"`
	Status          ApplicationStatus `db:"status"`
	ApplicationDate time.Time         `db:"application_date"`
	TripStart       *time.Time        `db:"trip_start"`
	TripEnd         *time.Time        `db:"trip_end"`

	OrganizationUnit  string  `db:"organization_unit"`
	ResponsiblePerson string  `db:"responsible_person"`
	Phone             string  `db:"phone"`
	Purpose           string  `db:"purpose"`
	Passengers        *string `db:"passengers"`
	Route             string  `db:"route"`
	Notes             *string `db:"notes"`

	// Поля диспетчера
	DispatcherName  *string `db:"dispatcher_name"`
	DispatcherPhone *string `db:"dispatcher_phone"`
	DriverName      *string `db:"driver_name"`
	DriverPhone     *string `db:"driver_phone"`
	VehicleBrand    *string `db:"vehicle_brand"`
	VehicleNumber   *string `db:"vehicle_number"`
	VehicleColor    *string `db:"vehicle_color"`
	DispatcherNotes *string `db:"dispatcher_notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   uint64    `db:"version"`

	StatusHistory []StatusHistory `db:"-"`
}

// LastHistory возвращает последнюю запись истории или nil.
func (a *Application) LastHistory() *StatusHistory {
	if len(a.StatusHistory) == 0 {
		return nil
	}
	return &a.StatusHistory[len(a.StatusHistory)-1]
}

// Clone копирует заявку вместе со срезом истории.
func (a Application) Clone() Application {
	if a.StatusHistory != nil {
		history := make([]StatusHistory, len(a.StatusHistory))
		copy(history, a.StatusHistory)
		a.StatusHistory = history
	}
	return a
}
