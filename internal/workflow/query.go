package workflow

import (
	"sort"
	"strings"

	"transport-request-system/internal/entities"
)

// Match проверяет заявку на соответствие фильтру. Удалённые заявки не проходят никогда.
func Match(filter entities.ApplicationFilter, app entities.Application) bool {
	if app.Status == entities.StatusDeleted {
		return false
	}
	if filter.DateFrom != nil && app.ApplicationDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && app.ApplicationDate.After(*filter.DateTo) {
		return false
	}
	if filter.OrganizationUnit != "" && !strings.Contains(app.OrganizationUnit, filter.OrganizationUnit) {
		return false
	}
	if len(filter.SelectedStatuses) > 0 && !containsStatus(filter.SelectedStatuses, app.Status) {
		return false
	}
	return true
}

// OrderNewestFirst сортирует по created_at по убыванию, при равенстве - по id по убыванию.
func OrderNewestFirst(apps []entities.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID > apps[j].ID
	})
}

// Select применяет фильтр к набору заявок и возвращает новый упорядоченный срез.
func Select(filter entities.ApplicationFilter, apps []entities.Application) []entities.Application {
	result := make([]entities.Application, 0, len(apps))
	for _, app := range apps {
		if Match(filter, app) {
			result = append(result, app)
		}
	}
	OrderNewestFirst(result)
	return result
}

func containsStatus(list []entities.ApplicationStatus, s entities.ApplicationStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
