package store

import (
	"fmt"
	"io"

	ical "github.com/arran4/golang-ical"
)

// icsPriority maps task priority onto the RFC 5545 1 (highest) to 9 scale.
func icsPriority(p Priority) string {
	switch p {
	case PriorityHigh:
		return "1"
	case PriorityLow:
		return "9"
	default:
		return "5"
	}
}

// ExportICS writes every task in [from, to] as a VTODO due on its day.
// Empty bounds are open.
func (s *Store) ExportICS(w io.Writer, from, to string) (int, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//agenda//planner//EN")

	all := s.readTasks()
	count := 0
	for _, date := range sortedKeys(all) {
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		day, err := ParseDate(date)
		if err != nil {
			continue
		}
		for _, t := range all[date] {
			todo := cal.AddTodo(fmt.Sprintf("%s-%s@agenda", t.ID, date))
			todo.SetDtStampTime(t.UpdatedAt)
			todo.SetModifiedAt(t.UpdatedAt)
			todo.SetSummary(t.Text)
			todo.SetProperty(ical.ComponentPropertyDue, day.Format("20060102"), ical.WithValue(string(ical.ValueDataTypeDate)))
			todo.SetProperty(ical.ComponentPropertyPriority, icsPriority(t.Priority))
			if t.Completed {
				todo.SetProperty(ical.ComponentPropertyStatus, "COMPLETED")
			} else {
				todo.SetProperty(ical.ComponentPropertyStatus, "NEEDS-ACTION")
			}
			if t.CarriedFrom != "" {
				todo.SetDescription("Carried over from " + t.CarriedFrom)
			}
			count++
		}
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return 0, err
	}
	return count, nil
}
