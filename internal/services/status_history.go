package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"transport-request-system/internal/entities"
	"transport-request-system/internal/repositories"
	apperrors "transport-request-system/pkg/errors"
)

// AuditRecorder дописывает запись в историю статусов заявки.
// Записи только добавляются, никогда не изменяются.
type AuditRecorder struct {
	logger *zap.Logger
}

func NewAuditRecorder(logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{logger: logger}
}

// Record сохраняет entry в рамках tx и добавляет её в app.StatusHistory.
// ErrNotFound - запись не от этой заявки; ErrHistoryOutOfOrder - дата раньше
// предыдущей записи (Engine такого не выдаёт, это ошибка вызывающего кода).
func (r *AuditRecorder) Record(ctx context.Context, tx repositories.ApplicationTx, app *entities.Application, entry *entities.StatusHistory) error {
	if app == nil || app.ID == 0 || entry.ApplicationID != app.ID {
		return apperrors.ErrNotFound
	}
	if last := app.LastHistory(); last != nil && entry.ChangedDate.Before(last.ChangedDate) {
		return fmt.Errorf("%w: заявка %d, %s раньше %s", apperrors.ErrHistoryOutOfOrder, app.ID,
			entry.ChangedDate.Format(time.RFC3339), last.ChangedDate.Format(time.RFC3339))
	}

	if err := tx.CreateHistory(ctx, entry); err != nil {
		return err
	}
	app.StatusHistory = append(app.StatusHistory, *entry)

	r.logger.Debug("Запись истории добавлена",
		zap.Uint64("applicationID", app.ID),
		zap.Uint64("historyID", entry.ID),
		zap.String("from", entry.OldStatus),
		zap.String("to", entry.NewStatus),
	)
	return nil
}
