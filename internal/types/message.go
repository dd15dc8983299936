package types

import "encoding/json"

type MessageID int64

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// TurnID numbers turns within one conversation, starting at 1.
type TurnID uint64

// Turn ties a user question to the bot placeholder allocated for it.
type Turn struct {
	ID            TurnID    `json:"turn_id"`
	UserMessageID MessageID `json:"user_message_id"`
	BotMessageID  MessageID `json:"bot_message_id"`
	Query         string    `json:"query"`
}

type Message struct {
	ID        MessageID           `json:"id"`
	Turn      TurnID              `json:"turn_id,omitempty"`
	Sender    Sender              `json:"sender"`
	Text      string              `json:"text"`
	Completed bool                `json:"completed"`
	Metadata  *DiagnosticMetadata `json:"metadata,omitempty"`
}

// Thinking reports whether the message is a bot placeholder still awaiting
// its final answer.
func (m Message) Thinking() bool {
	return m.Sender == SenderBot && !m.Completed
}

func (m Message) Clone() Message {
	if m.Metadata != nil {
		meta := *m.Metadata
		m.Metadata = &meta
	}
	return m
}

// DiagnosticMetadata carries the artifacts the agent returns next to its
// answer. Opaque blobs stay raw so nothing is lost on the way to the view.
type DiagnosticMetadata struct {
	ThreadID           string            `json:"thread_id,omitempty"`
	Query              string            `json:"query,omitempty"`
	CreatedAt          string            `json:"created_at,omitempty"`
	UsedTools          []json.RawMessage `json:"used_tools,omitempty"`
	RecommendationData json.RawMessage   `json:"recommendation_data,omitempty"`
	Checkpoint         json.RawMessage   `json:"checkpoint,omitempty"`
	AgentProfiles      []json.RawMessage `json:"agent_profiles,omitempty"`
}

func (m *DiagnosticMetadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.ThreadID == "" && m.Query == "" && m.CreatedAt == "" && len(m.UsedTools) == 0 &&
		len(m.RecommendationData) == 0 && len(m.Checkpoint) == 0 && len(m.AgentProfiles) == 0
}
