package events

var (
	fileKeys     = []string{"file", "path", "file_path"}
	diffKeys     = []string{"diff", "patch"}
	toolNameKeys = []string{"name", "tool_name"}
	toolArgsKeys = []string{"args", "arguments"}
	errorKeys    = []string{"error", "message"}
)

// Normalize maps one decoded wire payload onto a canonical event. It returns
// nil for anything that is not a JSON object or has no recognizable shape.
// Missing or wrong-typed fields fall back to their zero value.
func Normalize(raw any) Event {
	payload, ok := raw.(map[string]any)
	if !ok || payload == nil {
		return nil
	}
	typ, hasType := payload["type"].(string)
	if !hasType {
		return legacyChat(payload)
	}

	switch Type(typ) {
	case TypeUser:
		return User{
			Content:    stringField(payload, "content"),
			Checkpoint: stringField(payload, "checkpoint"),
		}
	case TypeChatStart:
		return ChatStart{}
	case TypeChat:
		return Chat{Content: stringField(payload, "content")}
	case TypeChatEnd:
		return ChatEnd{}
	case TypeReasoningStart:
		return ReasoningStart{}
	case TypeReasoning:
		return Reasoning{Content: stringField(payload, "content")}
	case TypeReasoningEnd:
		return ReasoningEnd{}
	case TypeToolCall:
		return ToolCall{
			Name: firstString(payload, toolNameKeys...),
			Args: firstValue(payload, toolArgsKeys...),
		}
	case TypeFileEdit, "patch", "diff":
		return FileEdit{
			File:       firstString(payload, fileKeys...),
			Diff:       firstString(payload, diffKeys...),
			Checkpoint: stringField(payload, "checkpoint"),
		}
	case TypeError:
		return Error{Error: firstString(payload, errorKeys...)}
	case TypeDone:
		return Done{DialogID: stringField(payload, "dialog_id")}
	default:
		return legacyChat(payload)
	}
}

// legacyChat handles bare {"content": "..."} deltas from older servers.
func legacyChat(payload map[string]any) Event {
	content, ok := payload["content"].(string)
	if !ok {
		return nil
	}
	return Chat{Content: content}
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return value
}

// firstString returns the first key holding a string, in key order.
func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok {
			return value
		}
	}
	return ""
}

func firstValue(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := payload[key]; ok && value != nil {
			return value
		}
	}
	return nil
}
