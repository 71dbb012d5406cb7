package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"transport-request-system/internal/dto"
	"transport-request-system/pkg/utils"
)

// GetStatuses отдаёт справочник статусов. Статусы зашиты в код, поэтому сервиса нет.
func GetStatuses(ctx echo.Context) error {
	return utils.SuccessResponse(ctx, dto.NewStatusList(), "Список статусов успешно получен", http.StatusOK)
}
