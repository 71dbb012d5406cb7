package seeders

import (
	"context"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"transport-request-system/internal/dto"
	"transport-request-system/internal/services"
	"transport-request-system/pkg/utils"
)

const seederActor = "Сидер"

var demoUnits = []string{"Бухгалтерия", "Отдел кадров", "Склад №1", "ИТ-отдел", "Юридический отдел"}

var demoRoutes = []string{
	"Главный офис - Аэропорт",
	"Главный офис - Склад №1 - Главный офис",
	"Филиал - Налоговая инспекция",
}

// SeedApplications создаёт демонстрационные заявки через сервис, чтобы история
// и номера заполнялись так же, как при работе через API.
// Каждая следующая заявка продвигается по процессу на шаг дальше предыдущей.
func SeedApplications(ctx context.Context, svc services.ApplicationServiceInterface, count int, logger *zap.Logger) error {
	ctx = utils.WithActor(ctx, seederActor)
	logger.Info("▶️  Наполнение демонстрационными заявками", zap.Int("count", count))

	today := time.Now().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		tripStart := today.Add(time.Duration(24+i*6) * time.Hour)
		tripEnd := tripStart.Add(8 * time.Hour)

		app, err := svc.CreateApplication(ctx, dto.CreateApplicationDTO{
			ApplicationFieldsDTO: dto.ApplicationFieldsDTO{
				ApplicationDate:   dto.DateFrom(today.AddDate(0, 0, -i%3)),
				TripStart:         null.TimeFrom(tripStart),
				TripEnd:           null.TimeFrom(tripEnd),
				OrganizationUnit:  demoUnits[i%len(demoUnits)],
				ResponsiblePerson: fmt.Sprintf("Сотрудник %d", i+1),
				Phone:             fmt.Sprintf("+992 900 00%04d", i+1),
				Purpose:           "Служебная поездка",
				Passengers:        null.StringFrom(fmt.Sprintf("%d", 1+i%4)),
				Route:             demoRoutes[i%len(demoRoutes)],
			},
		})
		if err != nil {
			return fmt.Errorf("заявка %d: %w", i+1, err)
		}

		if err := advance(ctx, svc, app.ID, i%5); err != nil {
			return fmt.Errorf("заявка %s: %w", app.Number, err)
		}
	}

	logger.Info("✅ Демонстрационные заявки созданы")
	return nil
}

// advance проводит заявку через steps шагов: утверждение, назначение ТС, исполнение.
// steps == 4 - заявка отклоняется сразу.
func advance(ctx context.Context, svc services.ApplicationServiceInterface, id uint64, steps int) error {
	if steps == 4 {
		_, err := svc.RejectApplication(ctx, id, dto.CommentDTO{Comment: null.StringFrom("Нет свободного транспорта")})
		return err
	}
	if steps >= 1 {
		if _, err := svc.ApproveApplication(ctx, id, dto.CommentDTO{}); err != nil {
			return err
		}
	}
	if steps >= 2 {
		_, err := svc.AssignVehicle(ctx, id, dto.AssignVehicleDTO{
			DispatchFieldsDTO: dto.DispatchFieldsDTO{
				DispatcherName: null.StringFrom("Диспетчер"),
				DriverName:     null.StringFrom(fmt.Sprintf("Водитель %d", id)),
				VehicleBrand:   null.StringFrom("Toyota"),
				VehicleNumber:  null.StringFrom(fmt.Sprintf("%04dAA01", id)),
			},
		})
		if err != nil {
			return err
		}
	}
	if steps >= 3 {
		if _, err := svc.CompleteApplication(ctx, id, dto.CommentDTO{}); err != nil {
			return err
		}
	}
	return nil
}
