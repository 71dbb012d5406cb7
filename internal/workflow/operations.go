package workflow

import (
	"strings"

	"transport-request-system/internal/entities"
)

// Operation - именованная операция процесса с фиксированным целевым статусом.
type Operation struct {
	Name           string
	Target         entities.ApplicationStatus
	DefaultComment string
}

var (
	OpApprove       = Operation{Name: "approve", Target: entities.StatusApproved, DefaultComment: "Утвердить"}
	OpReject        = Operation{Name: "reject", Target: entities.StatusRejectedByDirector, DefaultComment: "Отклонение заявки руководителем"}
	OpAssignVehicle = Operation{Name: "assign_vehicle", Target: entities.StatusAssignedToVehicle, DefaultComment: "Назначение ТС"}
	OpComplete      = Operation{Name: "complete", Target: entities.StatusCompleted, DefaultComment: "Исполнение"}
	OpDelete        = Operation{Name: "delete", Target: entities.StatusDeleted, DefaultComment: "Удаление заявки"}
)

const (
	CommentCreate = "Создание заявки"
	CommentEdit   = "Редактирование заявки"
	CommentChange = "Смена статуса"
)

// Comment возвращает комментарий пользователя, а пустой или из одних пробелов
// заменяет комментарием по умолчанию.
func (o Operation) Comment(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return o.DefaultComment
}
