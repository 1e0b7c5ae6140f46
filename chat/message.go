// Package chat is the conversational session client: it turns user input
// into idempotent requests against the marketplace chat endpoint, keeps the
// session continuous across a role-scoped dialogue, and routes structured
// responses to interactive panels.
package chat

import (
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/proxiehq/proxie-go/media"
)

// Role selects greeting text, correlation identifiers and which structured
// panels are relevant for a dialogue.
type Role string

const (
	RoleConsumer   Role = "consumer"
	RoleProvider   Role = "provider"
	RoleEnrollment Role = "enrollment"
)

// Valid reports whether the role is one of the known dialogue roles.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleProvider, RoleEnrollment:
		return true
	}
	return false
}

// Origin marks who produced a message.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Message is one entry of the session log. Immutable once appended.
type Message struct {
	ID               string
	Origin           Origin
	Content          string
	Media            []media.Attachment
	Data             *PanelData
	Draft            *DraftRequest
	AwaitingApproval bool
	CreatedAt        time.Time
}

// NewUserMessage mints an optimistic user message.
func NewUserMessage(content string, attachments []media.Attachment) Message {
	return Message{
		ID:        "user-" + shortuuid.New(),
		Origin:    OriginUser,
		Content:   content,
		Media:     attachments,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage mints an assistant message from decoded envelope parts.
func NewAssistantMessage(content string, data *PanelData, draft *DraftRequest, awaitingApproval bool) Message {
	return Message{
		ID:               "assistant-" + shortuuid.New(),
		Origin:           OriginAssistant,
		Content:          content,
		Data:             data,
		Draft:            draft,
		AwaitingApproval: awaitingApproval,
		CreatedAt:        time.Now(),
	}
}
