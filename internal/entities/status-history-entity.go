package entities

import "time"

// StatusHistory - неизменяемая запись журнала смены статуса.
type StatusHistory struct {
	ID            uint64    `db:"id"`
	ApplicationID uint64    `db:"application_id"`
	OldStatus     string    `db:"old_status"`
	NewStatus     string    `db:"new_status"`
	ChangedBy     string    `db:"changed_by"`
	Comment       string    `db:"comment"`
	ChangedDate   time.Time `db:"changed_date"`
}
