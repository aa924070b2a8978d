package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func recipients(ds []Delivery, typ EventType) []int64 {
	var out []int64
	for _, d := range ds {
		if d.Event.Type == typ {
			out = append(out, d.UserID)
		}
	}
	return out
}

func TestFanOutCreated(t *testing.T) {
	ds := FanOutCreated(Task{ID: 1, CreatedBy: 1, AssignedUsers: []int64{2, 3}, AssignedTo: ptr(int64(2))})

	assert.Equal(t, []int64{1}, recipients(ds, EventTaskCreated))
	assert.Equal(t, []int64{2, 3}, recipients(ds, EventTaskAssigned))
	for _, d := range ds {
		assert.Equal(t, int64(1), d.Event.ID())
	}
}

func TestFanOutUpdated(t *testing.T) {
	prev := Task{ID: 1, CreatedBy: 1, AssignedUsers: []int64{2}}
	next := Task{ID: 1, CreatedBy: 1, AssignedUsers: []int64{2, 4}}

	ds := FanOutUpdated(prev, next)
	assert.Equal(t, []int64{1, 2}, recipients(ds, EventTaskUpdated))
	assert.Equal(t, []int64{4}, recipients(ds, EventTaskAssigned))
}

func TestFanOutUpdatedNotifiesRemovedAssignee(t *testing.T) {
	prev := Task{ID: 1, CreatedBy: 1, AssignedUsers: []int64{2}}
	next := Task{ID: 1, CreatedBy: 1}

	ds := FanOutUpdated(prev, next)
	assert.Equal(t, []int64{1, 2}, recipients(ds, EventTaskUpdated))
	assert.Empty(t, recipients(ds, EventTaskAssigned))
}

func TestFanOutDeleted(t *testing.T) {
	ds := FanOutDeleted(Task{ID: 9, CreatedBy: 1, AssignedUsers: []int64{1, 3}})

	assert.Equal(t, []int64{1, 3}, recipients(ds, EventTaskDeleted))
	for _, d := range ds {
		assert.Nil(t, d.Event.Task)
		assert.Equal(t, int64(9), d.Event.ID())
	}
}
