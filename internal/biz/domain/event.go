package domain

import "strings"

// GroupUpdateType marks a membership or metadata change of a group
const GroupUpdateType = "UPDATE"

// Event is one received envelope, flattened to the fields moderation needs
type Event struct {
	Account      string
	Source       string
	SourceNumber string
	SourceUUID   string
	SourceName   string
	Timestamp    int64

	HasDataMessage bool
	Message        string
	GroupID        string
	GroupName      string
	GroupType      string
	QuoteAuthor    string
}

// SenderID resolves the sender: uuid, then number, then legacy source.
func (e *Event) SenderID() string {
	switch {
	case e.SourceUUID != "":
		return e.SourceUUID
	case e.SourceNumber != "":
		return e.SourceNumber
	case e.Source != "":
		return e.Source
	}
	return "unknown"
}

// IsGroupEvent reports whether the event is a data message addressed to a group
func (e *Event) IsGroupEvent() bool {
	return e.HasDataMessage && e.GroupID != ""
}

// IsGroupUpdate reports whether the event describes a group change rather than a message
func (e *Event) IsGroupUpdate() bool {
	return e.GroupType == GroupUpdateType
}

// Text returns the trimmed message body
func (e *Event) Text() string {
	return strings.TrimSpace(e.Message)
}
