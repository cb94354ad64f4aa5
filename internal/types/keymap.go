package types

import "strings"

const (
	KeyActionQuit            = "quit"
	KeyActionStop            = "stop"
	KeyActionToggleFocus     = "toggle_focus"
	KeyActionToggleSidebar   = "toggle_sidebar"
	KeyActionNewDialog       = "new_dialog"
	KeyActionDeleteDialog    = "delete_dialog"
	KeyActionCopyReply       = "copy_reply"
	KeyActionToggleReasoning = "toggle_reasoning"
	KeyActionPageUp          = "page_up"
	KeyActionPageDown        = "page_down"
)

// Keymap binds UI actions to keys. A binding may list several keys
// separated by commas.
type Keymap struct {
	Bindings map[string]string `json:"bindings"`
}

func DefaultKeymap() *Keymap {
	return &Keymap{
		Bindings: map[string]string{
			KeyActionQuit:            "ctrl+c",
			KeyActionStop:            "esc",
			KeyActionToggleFocus:     "tab",
			KeyActionToggleSidebar:   "ctrl+b",
			KeyActionNewDialog:       "ctrl+n",
			KeyActionDeleteDialog:    "ctrl+d",
			KeyActionCopyReply:       "ctrl+y",
			KeyActionToggleReasoning: "ctrl+r",
			KeyActionPageUp:          "pgup,ctrl+u",
			KeyActionPageDown:        "pgdown,ctrl+f",
		},
	}
}

// WithOverrides returns a copy with overrides applied. Unknown actions and
// empty bindings are ignored.
func (k *Keymap) WithOverrides(overrides map[string]string) *Keymap {
	out := &Keymap{Bindings: map[string]string{}}
	if k != nil {
		for action, keys := range k.Bindings {
			out.Bindings[action] = keys
		}
	}
	for action, keys := range overrides {
		action = strings.TrimSpace(action)
		keys = strings.TrimSpace(keys)
		if _, ok := out.Bindings[action]; !ok || keys == "" {
			continue
		}
		out.Bindings[action] = keys
	}
	return out
}

// Action returns the action bound to key, or "".
func (k *Keymap) Action(key string) string {
	if k == nil || key == "" {
		return ""
	}
	for action, keys := range k.Bindings {
		for _, bound := range strings.Split(keys, ",") {
			if strings.TrimSpace(bound) == key {
				return action
			}
		}
	}
	return ""
}

// Key returns the first key bound to action, for help text.
func (k *Keymap) Key(action string) string {
	if k == nil {
		return ""
	}
	first, _, _ := strings.Cut(k.Bindings[action], ",")
	return strings.TrimSpace(first)
}
