package conversation

// Role tags the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Transcript is an ordered, append-only sequence of messages. Its meaning is
// the concatenation of its messages; entries are never reordered or removed.
//
// A Transcript is not safe for concurrent use; callers serialize access.
type Transcript struct {
	messages []Message
}

// NewTranscript starts a transcript with the given system instruction.
func NewTranscript(system string) *Transcript {
	return &Transcript{messages: []Message{System(system)}}
}

// Append adds durable messages to the end of the transcript.
func (t *Transcript) Append(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}

// With returns the transcript followed by the probe messages as a new slice.
// The transcript itself is left untouched, so a side question can be asked
// without the exchange becoming part of the history.
func (t *Transcript) With(probe ...Message) []Message {
	out := make([]Message, 0, len(t.messages)+len(probe))
	out = append(out, t.messages...)
	return append(out, probe...)
}

// Messages returns a copy of the transcript's messages.
func (t *Transcript) Messages() []Message {
	return t.With()
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}
