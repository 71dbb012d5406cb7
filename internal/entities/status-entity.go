package entities

import (
	"fmt"
)

// ApplicationStatus - статус заявки на транспорт.
// В БД хранится символьное имя (см. statusNames), а не порядковый номер,
// поэтому порядок объявления констант можно менять без миграции.
type ApplicationStatus int

const (
	StatusDeleted ApplicationStatus = iota + 1
	StatusRejectedByDirector
	StatusRejectedByDispatcher
	StatusAssignedToVehicle
	StatusCreatedOrModified
	StatusNotCompleted
	StatusCompleted
	StatusInProgress
	StatusApproved
)

// StatusUnset пишется в old_status первой записи истории.
const StatusUnset = "unset"

var statusNames = map[ApplicationStatus]string{
	StatusDeleted:              "Deleted",
	StatusRejectedByDirector:   "RejectedByDirector",
	StatusRejectedByDispatcher: "RejectedByDispatcher",
	StatusAssignedToVehicle:    "AssignedToVehicle",
	StatusCreatedOrModified:    "CreatedOrModified",
	StatusNotCompleted:         "NotCompleted",
	StatusCompleted:            "Completed",
	StatusInProgress:           "InProgress",
	StatusApproved:             "Approved",
}

var statusDisplayNames = map[ApplicationStatus]string{
	StatusDeleted:              "Удалена",
	StatusRejectedByDirector:   "Отклонена руководителем",
	StatusRejectedByDispatcher: "Отклонена диспетчером",
	StatusAssignedToVehicle:    "Назначено ТС",
	StatusCreatedOrModified:    "Создана/Изменена",
	StatusNotCompleted:         "Не исполнена",
	StatusCompleted:            "Исполнена",
	StatusInProgress:           "Исполняется",
	StatusApproved:             "Утверждена",
}

var statusByName = func() map[string]ApplicationStatus {
	m := make(map[string]ApplicationStatus, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}()

// AllStatuses возвращает статусы в порядке объявления (для фильтров в UI).
func AllStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		StatusDeleted,
		StatusRejectedByDirector,
		StatusRejectedByDispatcher,
		StatusAssignedToVehicle,
		StatusCreatedOrModified,
		StatusNotCompleted,
		StatusCompleted,
		StatusInProgress,
		StatusApproved,
	}
}

func ParseApplicationStatus(name string) (ApplicationStatus, error) {
	s, ok := statusByName[name]
	if !ok {
		return 0, fmt.Errorf("неизвестный статус заявки: %q", name)
	}
	return s, nil
}

func (s ApplicationStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s ApplicationStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ApplicationStatus(%d)", int(s))
}

func (s ApplicationStatus) DisplayName() string {
	if name, ok := statusDisplayNames[s]; ok {
		return name
	}
	return s.String()
}

func (s ApplicationStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("неизвестный статус заявки: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *ApplicationStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseApplicationStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
