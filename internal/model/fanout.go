package model

import "slices"

// Delivery is one event addressed to one user topic
type Delivery struct {
	UserID int64
	Event  Event
}

// FanOutCreated addresses a new task: task_created to the creator and
// task_assigned to every assignee
func FanOutCreated(t Task) []Delivery {
	var out []Delivery
	if t.CreatedBy != 0 {
		out = append(out, Delivery{UserID: t.CreatedBy, Event: NewTaskEvent(EventTaskCreated, t)})
	}
	for _, id := range t.Assignees() {
		out = append(out, Delivery{UserID: id, Event: NewTaskEvent(EventTaskAssigned, t)})
	}
	return out
}

// FanOutUpdated addresses a changed task: task_assigned to users added by
// the change and task_updated to the creator and every previous assignee
func FanOutUpdated(prev, next Task) []Delivery {
	before := prev.Assignees()
	var updated, assigned []int64
	if next.CreatedBy != 0 {
		updated = append(updated, next.CreatedBy)
	}
	for _, id := range before {
		if !slices.Contains(updated, id) {
			updated = append(updated, id)
		}
	}
	for _, id := range next.Assignees() {
		if !slices.Contains(before, id) {
			assigned = append(assigned, id)
		}
	}

	out := make([]Delivery, 0, len(updated)+len(assigned))
	for _, id := range updated {
		out = append(out, Delivery{UserID: id, Event: NewTaskEvent(EventTaskUpdated, next)})
	}
	for _, id := range assigned {
		out = append(out, Delivery{UserID: id, Event: NewTaskEvent(EventTaskAssigned, next)})
	}
	return out
}

// FanOutDeleted addresses a removed task: task_deleted to the creator and
// every assignee
func FanOutDeleted(t Task) []Delivery {
	recipients := t.Assignees()
	if t.CreatedBy != 0 && !slices.Contains(recipients, t.CreatedBy) {
		recipients = append([]int64{t.CreatedBy}, recipients...)
	}
	out := make([]Delivery, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, Delivery{UserID: id, Event: NewDeletedEvent(t.ID)})
	}
	return out
}
