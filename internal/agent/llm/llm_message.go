package llm

type LLMMessageType string

const (
	LLMMessageTypeUser      LLMMessageType = "user"
	LLMMessageTypeAssistant LLMMessageType = "assistant"
	LLMMessageTypeSystem    LLMMessageType = "system"
)

type LLMMessage struct {
	Type      LLMMessageType `json:"type"`
	Content   string         `json:"content"`
	// Truncated is set when the backend stopped at the max tokens limit.
	Truncated bool           `json:"truncated,omitempty"`
}

func NewLLMMessage(msgType LLMMessageType, content string) LLMMessage {
	return LLMMessage{
		Type:    msgType,
		Content: content,
	}
}
