package model

import "time"

// Message roles as the backend expects them in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript bubble. Transcript entries are append-only
// and live only for the process lifetime.
type ChatMessage struct {
	ID          string
	Role        string
	Text        string
	Timestamp   time.Time
	Suggestions []string
	IsError     bool
}

// ConversationTurn is one role/content pair of the history sent verbatim to
// the chat endpoint; the backend is stateless per request, so the client is
// the sole holder of this sequence.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ParseMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatRequest struct {
	Message             string             `json:"message" binding:"required"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
}

// ChatResponse carries the assistant reply. Type is advisory
// (question | suggestion | confirmation | multiple_tasks); the controller
// only depends on Response, Suggestions and ParsedReminders.
type ChatResponse struct {
	Response        string           `json:"response"`
	Type            string           `json:"type,omitempty"`
	Suggestions     []string         `json:"suggestions,omitempty"`
	ParsedReminders []ParsedReminder `json:"parsed_reminders,omitempty"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}
