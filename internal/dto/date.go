package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date - календарная дата заявки. Принимает "ГГГГ-ММ-ДД", как фильтр списка,
// или полную метку RFC3339. Отдаётся в RFC3339.
type Date struct {
	Time     time.Time
	Valid    bool
	dateOnly bool
}

func DateFrom(t time.Time) Date {
	return Date{Time: t, Valid: true}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = Date{}
		return nil
	}

	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		*d = Date{Time: t, Valid: true, dateOnly: true}
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("дата %q: ожидается ГГГГ-ММ-ДД или RFC3339", raw)
	}
	*d = Date{Time: t, Valid: true}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time)
}

// In ставит дату без времени на полночь в loc. Полные метки не трогает.
func (d Date) In(loc *time.Location) Date {
	if !d.Valid || !d.dateOnly || loc == nil {
		return d
	}
	y, m, day := d.Time.Date()
	d.Time = time.Date(y, m, day, 0, 0, 0, 0, loc)
	return d
}
