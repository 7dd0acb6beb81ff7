// Package model defines data structures for the virtual contributor engine.
package model

// Role represents the author of a conversation turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn represents a single conversation turn, oldest-first in a history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
