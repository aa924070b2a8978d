package model

import "time"

// Notification is an inbox entry shown to the current user
type Notification struct {
	ID        int64     `json:"id"`
	Task      Task      `json:"task"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// CountUnread returns how many notifications are still unread
func CountUnread(ns []Notification) int {
	n := 0
	for i := range ns {
		if !ns[i].Read {
			n++
		}
	}
	return n
}
