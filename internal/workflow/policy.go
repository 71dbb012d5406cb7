package workflow

import (
	"fmt"

	"transport-request-system/internal/entities"
	apperrors "transport-request-system/pkg/errors"
)

// TransitionPolicy решает, допустим ли переход from -> to.
type TransitionPolicy interface {
	Allow(from, to entities.ApplicationStatus) error
}

// PermissivePolicy разрешает любой переход, в том числе в тот же статус.
type PermissivePolicy struct{}

func (PermissivePolicy) Allow(_, to entities.ApplicationStatus) error {
	if !to.IsValid() {
		return apperrors.NewValidationError("некорректный статус", map[string]string{"status": to.String()})
	}
	return nil
}

// TablePolicy разрешает только переходы, перечисленные в таблице.
type TablePolicy struct {
	allowed map[entities.ApplicationStatus]map[entities.ApplicationStatus]struct{}
}

func NewTablePolicy(table map[entities.ApplicationStatus][]entities.ApplicationStatus) *TablePolicy {
	allowed := make(map[entities.ApplicationStatus]map[entities.ApplicationStatus]struct{}, len(table))
	for from, targets := range table {
		set := make(map[entities.ApplicationStatus]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		allowed[from] = set
	}
	return &TablePolicy{allowed: allowed}
}

func (p *TablePolicy) Allow(from, to entities.ApplicationStatus) error {
	if !to.IsValid() {
		return apperrors.NewValidationError("некорректный статус", map[string]string{"status": to.String()})
	}
	if _, ok := p.allowed[from][to]; !ok {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrTransitionNotAllowed, from, to)
	}
	return nil
}

// DefaultDispatchTable - граф статусов для строгого режима (WORKFLOW_STRICT_TRANSITIONS).
func DefaultDispatchTable() map[entities.ApplicationStatus][]entities.ApplicationStatus {
	return map[entities.ApplicationStatus][]entities.ApplicationStatus{
		entities.StatusCreatedOrModified: {
			entities.StatusApproved, entities.StatusRejectedByDirector,
			entities.StatusCreatedOrModified, entities.StatusDeleted,
		},
		entities.StatusApproved: {
			entities.StatusAssignedToVehicle, entities.StatusRejectedByDispatcher,
			entities.StatusRejectedByDirector, entities.StatusCreatedOrModified, entities.StatusDeleted,
		},
		entities.StatusAssignedToVehicle: {
			entities.StatusInProgress, entities.StatusCompleted, entities.StatusNotCompleted,
			entities.StatusRejectedByDispatcher, entities.StatusDeleted,
		},
		entities.StatusInProgress:           {entities.StatusCompleted, entities.StatusNotCompleted},
		entities.StatusRejectedByDirector:   {entities.StatusCreatedOrModified, entities.StatusDeleted},
		entities.StatusRejectedByDispatcher: {entities.StatusCreatedOrModified, entities.StatusDeleted},
		entities.StatusCompleted:            {entities.StatusDeleted},
		entities.StatusNotCompleted:         {entities.StatusDeleted},
		entities.StatusDeleted:              {},
	}
}
