package domain

import "time"

// Action names a moderation action recorded in the audit log
type Action string

const (
	ActionReply    Action = "reply"
	ActionWarn     Action = "warn"
	ActionKick     Action = "kick"
	ActionBan      Action = "ban"
	ActionReject   Action = "reject"
	ActionWelcome  Action = "welcome"
	ActionTakeover Action = "takeover"
)

// ModerationRecord describes one action the engine took in a group
type ModerationRecord struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
