package models

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is a single bubble in a conversation. Messages are never edited once created.
type ChatMessage struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Reply string `json:"reply"`
	HTML  string `json:"html,omitempty"`
}

// ModelsResponse lists the fallback chain in the order it is tried.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// Relay socket event names
const (
	RelayEventMessage = "message"
)

// RelayEvent is the JSON envelope exchanged over the relay socket.
type RelayEvent struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}
