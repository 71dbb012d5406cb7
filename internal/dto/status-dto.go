package dto

import "transport-request-system/internal/entities"

// StatusDTO - статус заявки для выпадающих списков и фильтров.
type StatusDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func NewStatusList() []StatusDTO {
	statuses := entities.AllStatuses()
	out := make([]StatusDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusDTO{Code: s.String(), Name: s.DisplayName()})
	}
	return out
}
