package session

import (
	"time"
)

// Role names the author of a conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a conversation.
type Message struct {
	Timestamp time.Time      `json:"timestamp"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Session is the conversation state kept for one user interaction. Ended
// sessions stay addressable until compaction or physical expiry; IsActive is
// the soft-delete flag.
type Session struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActivity time.Time      `json:"lastActivity"`
	IsActive     bool           `json:"isActive"`
	EndedAt      time.Time      `json:"endedAt,omitzero"`
	History      []Message      `json:"history"`
	CurrentAgent string         `json:"currentAgent,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// Patch carries the fields Update merges into a stored session. Nil pointer
// fields are left untouched; Context keys are merged over the existing map.
type Patch struct {
	CurrentAgent *string
	Context      map[string]any
}

// clone deep-copies the session so callers never share mutable state with the
// stored record.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.History != nil {
		out.History = make([]Message, len(s.History))
		copy(out.History, s.History)
		for i, m := range s.History {
			if m.Metadata != nil {
				meta := make(map[string]any, len(m.Metadata))
				for k, v := range m.Metadata {
					meta[k] = v
				}
				out.History[i].Metadata = meta
			}
		}
	}
	if s.Context != nil {
		ctx := make(map[string]any, len(s.Context))
		for k, v := range s.Context {
			ctx[k] = v
		}
		out.Context = ctx
	}
	return &out
}
