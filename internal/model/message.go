// Package model defines the core data structures for the smsflow application.
package model

import "time"

// RawMessage is one notification message as read from a message source.
type RawMessage struct {
	Timestamp time.Time
	Sender    string
	Body      string
}

// Hash returns the duplicate-detection identity of the message.
func (m RawMessage) Hash() string {
	return MessageHash(m.Sender, m.Timestamp, m.Body)
}
