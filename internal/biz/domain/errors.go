package domain

import "errors"

var (
	// ErrNoAccount means no gateway account has been linked or registered
	ErrNoAccount = errors.New("no account set, link or register one first")
	// ErrNoWatchedGroups means no group has a stored policy
	ErrNoWatchedGroups = errors.New("no group configs found, select a group and save its policy first")
	// ErrGroupNotFound means the gateway no longer lists the group
	ErrGroupNotFound = errors.New("group not found")
	// ErrStreamClosed means the receive stream ended
	ErrStreamClosed = errors.New("receive stream closed")
)
