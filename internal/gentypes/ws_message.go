package gentypes

// StreamFrameType defines the type of a frame exchanged over the chat WebSocket.
type StreamFrameType string

const (
	PromptFrameType StreamFrameType = "prompt" // client -> server
	ResetFrameType  StreamFrameType = "reset"  // client -> server, clears the session history
	ChunkFrameType  StreamFrameType = "chunk"  // server -> client, partial completion
	DoneFrameType   StreamFrameType = "done"   // server -> client, full completion
	ErrorFrameType  StreamFrameType = "error"  // server -> client
)

// StreamFrame defines the structure of frames exchanged over the chat WebSocket.
type StreamFrame struct {
	Type      StreamFrameType `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	Text      string          `json:"text,omitempty"`
	Error     string          `json:"error,omitempty"`
	Details   string          `json:"details,omitempty"`
}
