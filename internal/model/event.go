package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventType names a push notification kind
type EventType string

const (
	EventTaskCreated  EventType = "task_created"
	EventTaskUpdated  EventType = "task_updated"
	EventTaskAssigned EventType = "task_assigned"
	EventTaskDeleted  EventType = "task_deleted"
)

// Known reports whether t is one of the event types the server emits
func (t EventType) Known() bool {
	switch t {
	case EventTaskCreated, EventTaskUpdated, EventTaskAssigned, EventTaskDeleted:
		return true
	}
	return false
}

// Event is a push message received on a user topic
type Event struct {
	Type   EventType `json:"type"`
	Task   *Task     `json:"task,omitempty"`
	TaskID *int64    `json:"taskId,omitempty"`

	// Recipient is the user id of the subscription that received the
	// event. It is set by the channel, never sent on the wire.
	Recipient int64 `json:"-"`
}

// ID returns the id of the affected task
func (e *Event) ID() int64 {
	if e.TaskID != nil {
		return *e.TaskID
	}
	if e.Task != nil {
		return e.Task.ID
	}
	return 0
}

// TopicFor returns the push topic of a user
func TopicFor(userID int64) string {
	return "/topic/user/" + strconv.FormatInt(userID, 10) + "/tasks"
}

// DecodeEvent parses a push body. Unknown types, task events without a task
// and deletions without an id are rejected with ErrMalformedPayload.
func DecodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !ev.Type.Known() {
		return Event{}, fmt.Errorf("%w: unknown event type %q", ErrMalformedPayload, ev.Type)
	}
	switch ev.Type {
	case EventTaskDeleted:
		if ev.ID() == 0 {
			return Event{}, fmt.Errorf("%w: %s without task id", ErrMalformedPayload, ev.Type)
		}
	default:
		if ev.Task == nil {
			return Event{}, fmt.Errorf("%w: %s without task", ErrMalformedPayload, ev.Type)
		}
	}
	return ev, nil
}

// NewTaskEvent builds an event carrying a task snapshot
func NewTaskEvent(typ EventType, t Task) Event {
	snap := t.Clone()
	return Event{Type: typ, Task: &snap}
}

// NewDeletedEvent builds a deletion event carrying only the id
func NewDeletedEvent(id int64) Event {
	return Event{Type: EventTaskDeleted, TaskID: &id}
}
