package entities

import "time"

// ApplicationFilter - условия выборки списка заявок. Все условия объединяются через AND,
// пустые поля не ограничивают выборку.
type ApplicationFilter struct {
	DateFrom         *time.Time
	DateTo           *time.Time
	OrganizationUnit string
	SelectedStatuses []ApplicationStatus
}
