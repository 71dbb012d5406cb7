package events

const ApplicationChangedEventName = "application.changed"

// ApplicationChangedEvent публикуется после успешной записи заявки (создание, правка, смена статуса).
type ApplicationChangedEvent struct {
	ApplicationID uint64 `json:"application_id"`
	Operation     string `json:"operation"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	Actor         string `json:"actor"`
}

// Name - реализуем интерфейс eventbus.Event
func (e ApplicationChangedEvent) Name() string {
	return ApplicationChangedEventName
}
