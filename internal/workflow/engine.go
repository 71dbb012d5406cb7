package workflow

import (
	"strings"
	"time"

	"transport-request-system/internal/entities"
)

// SystemActor подставляется, когда инициатор изменения неизвестен.
const SystemActor = "System"

// Engine применяет смену статуса к заявке и формирует запись истории.
// Engine ничего не сохраняет: заявку и запись истории сохраняет вызывающий код
// в одной транзакции.
type Engine struct {
	policy TransitionPolicy
	now    func() time.Time
}

func NewEngine(policy TransitionPolicy, now func() time.Time) *Engine {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{policy: policy, now: now}
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Transition переводит заявку в статус newStatus. Переход в текущий статус
// тоже допускается и тоже пишется в историю.
func (e *Engine) Transition(app *entities.Application, newStatus entities.ApplicationStatus, actor, comment string) (*entities.Application, *entities.StatusHistory, error) {
	if err := e.policy.Allow(app.Status, newStatus); err != nil {
		return nil, nil, err
	}

	changedAt := e.stamp(app)
	updated := app.Clone()
	oldStatus := updated.Status
	updated.Status = newStatus
	updated.UpdatedAt = changedAt

	entry := &entities.StatusHistory{
		ApplicationID: updated.ID,
		OldStatus:     oldStatus.String(),
		NewStatus:     newStatus.String(),
		ChangedBy:     ResolveActor(actor),
		Comment:       comment,
		ChangedDate:   changedAt,
	}
	return &updated, entry, nil
}

// Initial формирует первую запись истории для только что созданной заявки.
func (e *Engine) Initial(app *entities.Application, actor, comment string) *entities.StatusHistory {
	return &entities.StatusHistory{
		ApplicationID: app.ID,
		OldStatus:     entities.StatusUnset,
		NewStatus:     app.Status.String(),
		ChangedBy:     ResolveActor(actor),
		Comment:       comment,
		ChangedDate:   app.CreatedAt,
	}
}

// Touch обновляет updatedAt без смены статуса (редактирование полей).
func (e *Engine) Touch(app *entities.Application) {
	app.UpdatedAt = e.stamp(app)
}

// stamp не даёт времени откатиться назад относительно updatedAt и последней записи истории.
func (e *Engine) stamp(app *entities.Application) time.Time {
	ts := e.now()
	if ts.Before(app.UpdatedAt) {
		ts = app.UpdatedAt
	}
	if last := app.LastHistory(); last != nil && ts.Before(last.ChangedDate) {
		ts = last.ChangedDate
	}
	return ts
}

// MaxActorLength - ширина колонки changed_by.
const MaxActorLength = 100

// ResolveActor - пустое имя означает "System", слишком длинное обрезается до ширины колонки.
func ResolveActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return SystemActor
	}
	if runes := []rune(actor); len(runes) > MaxActorLength {
		return string(runes[:MaxActorLength])
	}
	return actor
}
