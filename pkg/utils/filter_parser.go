package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"transport-request-system/internal/entities"
	apperrors "transport-request-system/pkg/errors"
)

const DateLayout = "2006-01-02"

// ParseApplicationFilter разбирает параметры списка заявок:
// date_from, date_to (ГГГГ-ММ-ДД, обе границы включительно),
// organization_unit, statuses (повторяющийся параметр или список через запятую).
func ParseApplicationFilter(query url.Values, loc *time.Location) (entities.ApplicationFilter, error) {
	var filter entities.ApplicationFilter
	if loc == nil {
		loc = time.Local
	}
	fields := map[string]string{}

	if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
		from, err := time.ParseInLocation(DateLayout, raw, loc)
		if err != nil {
			fields["date_from"] = "ожидается дата вида ГГГГ-ММ-ДД"
		} else {
			filter.DateFrom = &from
		}
	}
	if raw := strings.TrimSpace(query.Get("date_to")); raw != "" {
		to, err := time.ParseInLocation(DateLayout, raw, loc)
		if err != nil {
			fields["date_to"] = "ожидается дата вида ГГГГ-ММ-ДД"
		} else {
			// конец дня, чтобы заявки с временем в этот день тоже попали
			end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
			filter.DateTo = &end
		}
	}

	filter.OrganizationUnit = query.Get("organization_unit")

	for _, value := range query["statuses"] {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			status, err := entities.ParseApplicationStatus(name)
			if err != nil {
				fields["statuses"] = fmt.Sprintf("неизвестный статус %q", name)
				continue
			}
			filter.SelectedStatuses = append(filter.SelectedStatuses, status)
		}
	}

	if len(fields) > 0 {
		return entities.ApplicationFilter{}, apperrors.NewValidationError("некорректный фильтр", fields)
	}
	return filter, nil
}
