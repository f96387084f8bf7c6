package finsight

import (
	"time"

	"github.com/google/uuid"
)

// Role of a chat message author.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of a conversation with the assistant.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessage stamps a new message.
func NewChatMessage(role Role, text string) ChatMessage {
	return ChatMessage{ID: uuid.NewString(), Role: role, Text: text, Timestamp: time.Now()}
}
