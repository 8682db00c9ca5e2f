package store

// maxSweepDays bounds the forward sweep run when a carried task is completed.
const maxSweepDays = 365

// ActivateDate makes date the active day. If its task bucket is empty, the
// incomplete tasks of the previous day are carried into it (same ids,
// CarriedFrom set to the previous day). It returns the carried tasks.
func (s *Store) ActivateDate(date string) ([]Task, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	s.active = date
	all := s.readTasks()
	if len(all[date]) > 0 {
		return nil, nil
	}
	prev := PrevDate(date)
	var carried []Task
	for _, t := range all[prev] {
		if t.Completed {
			continue
		}
		carried = append(carried, Task{
			ID:          t.ID,
			Text:        t.Text,
			Priority:    t.Priority,
			CarriedFrom: prev,
			UpdatedAt:   s.stamp(t.UpdatedAt),
		})
	}
	if len(carried) == 0 {
		return nil, nil
	}
	all[date] = carried
	_ = s.persistTasks(all, date)
	s.log.Debug("carried tasks forward", "from", prev, "to", date, "count", len(carried))
	return carried, nil
}

// CleanupCarriedTasks walks the days after date and removes the task with id,
// stopping at the first day that is empty or does not contain it. Later
// re-appearances of the id past such a gap are left alone.
func (s *Store) CleanupCarriedTasks(date, id string) int {
	if validateDate(date) != nil {
		return 0
	}
	all := s.readTasks()
	removed := 0
	current := date
	for step := 0; step < maxSweepDays; step++ {
		next := NextDate(current)
		tasks := all[next]
		if len(tasks) == 0 {
			break
		}
		idx := indexOfTask(tasks, id)
		if idx < 0 {
			break
		}
		all[next] = append(tasks[:idx:idx], tasks[idx+1:]...)
		removed++
		current = next
	}
	if removed > 0 {
		_ = s.persistTasks(all, date)
		s.log.Debug("removed carried copies", "id", id, "after", date, "count", removed)
	}
	return removed
}
