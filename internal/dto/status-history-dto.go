package dto

import (
	"time"

	"transport-request-system/internal/entities"
)

type StatusHistoryDTO struct {
	ID            uint64    `json:"id"`
	ApplicationID uint64    `json:"application_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	NewStatusName string    `json:"new_status_name"`
	ChangedBy     string    `json:"changed_by"`
	Comment       string    `json:"comment"`
	ChangedDate   time.Time `json:"changed_date"`
}

func NewStatusHistoryList(history []entities.StatusHistory) []StatusHistoryDTO {
	out := make([]StatusHistoryDTO, 0, len(history))
	for _, h := range history {
		item := StatusHistoryDTO{
			ID:            h.ID,
			ApplicationID: h.ApplicationID,
			OldStatus:     h.OldStatus,
			NewStatus:     h.NewStatus,
			NewStatusName: h.NewStatus,
			ChangedBy:     h.ChangedBy,
			Comment:       h.Comment,
			ChangedDate:   h.ChangedDate,
		}
		if s, err := entities.ParseApplicationStatus(h.NewStatus); err == nil {
			item.NewStatusName = s.DisplayName()
		}
		out = append(out, item)
	}
	return out
}
