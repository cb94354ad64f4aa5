package client

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type FileContext struct {
	Path      string `json:"path"`
	Language  string `json:"language,omitempty"`
	Content   string `json:"content,omitempty"`
	Selection string `json:"selection,omitempty"`
}

type ChatContext struct {
	CurrentFile *FileContext  `json:"current_file,omitempty"`
	OpenFiles   []FileContext `json:"open_files,omitempty"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Context  *ChatContext  `json:"context,omitempty"`
	Stream   bool          `json:"stream"`
	DialogID string        `json:"dialog_id,omitempty"`
}

// NewChatRequest builds the single-turn request the chat endpoint expects;
// the server keeps the conversation history per dialog.
func NewChatRequest(dialogID, text string, context *ChatContext) ChatRequest {
	return ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: text}},
		Context:  context,
		Stream:   true,
		DialogID: dialogID,
	}
}
