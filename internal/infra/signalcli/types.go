package signalcli

import (
	"encoding/json"
	"fmt"
)

// Envelope is one line of `-o json receive`
type Envelope struct {
	Envelope EnvelopeBody `json:"envelope"`
	Account  string       `json:"account"`
}

// EnvelopeBody carries the sender and the optional data message
type EnvelopeBody struct {
	Source       string       `json:"source"`
	SourceNumber string       `json:"sourceNumber"`
	SourceUUID   string       `json:"sourceUuid"`
	SourceName   string       `json:"sourceName"`
	Timestamp    int64        `json:"timestamp"`
	DataMessage  *DataMessage `json:"dataMessage"`
}

// DataMessage is a user message or a group change notification
type DataMessage struct {
	Timestamp        int64      `json:"timestamp"`
	Message          *string    `json:"message"`
	ExpiresInSeconds int64      `json:"expiresInSeconds"`
	GroupInfo        *GroupInfo `json:"groupInfo"`
	Quote            *Quote     `json:"quote"`
}

// GroupInfo identifies the group a data message belongs to
type GroupInfo struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
	Revision  int64  `json:"revision"`
	Type      string `json:"type"`
}

// Quote references the message being replied to
type Quote struct {
	ID           int64  `json:"id"`
	Author       string `json:"author"`
	AuthorNumber string `json:"authorNumber"`
	AuthorUUID   string `json:"authorUuid"`
	Text         string `json:"text"`
}

// AuthorID returns the quoted author, preferring the legacy author field
func (q *Quote) AuthorID() string {
	switch {
	case q == nil:
		return ""
	case q.Author != "":
		return q.Author
	case q.AuthorUUID != "":
		return q.AuthorUUID
	}
	return q.AuthorNumber
}

// ParseEnvelope decodes one receive line
func ParseEnvelope(line []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &env, nil
}

// Identity is a recipient reference inside a group listing
type Identity struct {
	UUID   string `json:"uuid"`
	Number string `json:"number"`
}

// Group is one entry of `-o json listGroups`
type Group struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Admins  []Identity `json:"admins"`
	Members []Identity `json:"members"`
}

// Contact is one entry of `-o json listContacts`
type Contact struct {
	UUID   string `json:"uuid"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Account is one entry of `-o json listAccounts`
type Account struct {
	Number string `json:"number"`
}
