// Package view holds the per-dialog presentation state the terminal UI
// renders: transcript blocks, streaming buffers, scroll position and history
// paging flags. Views are only touched from the UI update loop.
package view

import (
	"encoding/json"
	"strings"

	"smithy/internal/bridge"
	"smithy/internal/types"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleReasoning Role = "reasoning"
	RoleTool      Role = "tool"
	RoleFileEdit  Role = "file_edit"
	RoleError     Role = "error"
)

// Block is one rendered transcript entry. Idx is the persisted history
// index for user and assistant entries loaded from history.
type Block struct {
	Role       Role
	Text       string
	Idx        *int
	Checkpoint string
	File       string
	Diff       string
	Tool       string
	Live       bool
	Collapsed  bool
}

// Streaming is the in-flight state of a dialog's stream.
type Streaming struct {
	IsProcessing  bool
	AssistantText string
	ReasoningText string
}

type Scroll struct {
	Offset int
	Follow bool
}

type Notice struct {
	Error bool
	Text  string
}

// PruneFunc is told the first history idx still rendered after old blocks
// were dropped.
type PruneFunc func(dialogID string, firstIdx int)

const DefaultMaxBlocks = 200

type View struct {
	dialogID  string
	active    bool
	blocks    []Block
	streaming Streaming
	assistant int
	reasoning int
	scroll    Scroll

	hasMore        bool
	loadingHistory bool
	status         *types.SessionStatus
	notice         *Notice

	maxBlocks int
	onPrune   PruneFunc
	revision  int
}

func New(dialogID string, maxBlocks int, onPrune PruneFunc) *View {
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	return &View{
		dialogID:  dialogID,
		assistant: -1,
		reasoning: -1,
		scroll:    Scroll{Follow: true},
		maxBlocks: maxBlocks,
		onPrune:   onPrune,
	}
}

func (v *View) DialogID() string {
	if v == nil {
		return ""
	}
	return v.dialogID
}

func (v *View) Active() bool { return v.active }

func (v *View) Streaming() Streaming { return v.streaming }

func (v *View) IsProcessing() bool { return v != nil && v.streaming.IsProcessing }

// Blocks returns the rendered transcript. Callers must not modify it.
func (v *View) Blocks() []Block { return v.blocks }

func (v *View) Scroll() Scroll { return v.scroll }

// SetScroll records the viewport position so it survives switching away.
func (v *View) SetScroll(offset int, follow bool) {
	if offset < 0 {
		offset = 0
	}
	v.scroll = Scroll{Offset: offset, Follow: follow}
}

func (v *View) HasMore() bool { return v.hasMore }

func (v *View) LoadingHistory() bool { return v.loadingHistory }

func (v *View) Status() *types.SessionStatus { return v.status }

// TakeNotice returns the pending notice and clears it.
func (v *View) TakeNotice() *Notice {
	n := v.notice
	v.notice = nil
	return n
}

// Revision changes whenever the rendered content does.
func (v *View) Revision() int { return v.revision }

// FirstIdx is the history idx of the oldest indexed block still rendered.
func (v *View) FirstIdx() (int, bool) {
	for _, block := range v.blocks {
		if block.Idx != nil {
			return *block.Idx, true
		}
	}
	return 0, false
}

// ToggleCollapsed flips a reasoning block between preview and full text.
func (v *View) ToggleCollapsed(index int) bool {
	if index < 0 || index >= len(v.blocks) || v.blocks[index].Role != RoleReasoning {
		return false
	}
	v.blocks[index].Collapsed = !v.blocks[index].Collapsed
	v.touch()
	return true
}

// LastAssistantText returns the newest assistant reply, for copying.
func (v *View) LastAssistantText() string {
	for i := len(v.blocks) - 1; i >= 0; i-- {
		if v.blocks[i].Role == RoleAssistant && strings.TrimSpace(v.blocks[i].Text) != "" {
			return v.blocks[i].Text
		}
	}
	return ""
}

func (v *View) Apply(cmd bridge.Command) {
	if v == nil || cmd == nil {
		return
	}
	cmd.Accept(v)
}

func (v *View) OnAppendUser(cmd bridge.AppendUser) {
	v.append(Block{Role: RoleUser, Text: cmd.Content, Checkpoint: cmd.Checkpoint})
}

func (v *View) OnStartAssistant(bridge.StartAssistant) {
	v.closeAssistant()
	v.streaming.AssistantText = ""
	v.append(Block{Role: RoleAssistant, Live: true})
	v.assistant = len(v.blocks) - 1
}

func (v *View) OnAppendAssistant(cmd bridge.AppendAssistant) {
	if v.assistant < 0 {
		// Legacy servers send bare chat deltas without chat_start.
		v.OnStartAssistant(bridge.StartAssistant{})
	}
	v.streaming.AssistantText += cmd.Delta
	v.blocks[v.assistant].Text = v.streaming.AssistantText
	v.touch()
}

func (v *View) OnEndAssistant(bridge.EndAssistant) {
	v.closeAssistant()
}

func (v *View) OnStartReasoning(bridge.StartReasoning) {
	v.closeReasoning()
	v.streaming.ReasoningText = ""
	v.append(Block{Role: RoleReasoning, Live: true})
	v.reasoning = len(v.blocks) - 1
}

func (v *View) OnAppendReasoning(cmd bridge.AppendReasoning) {
	if v.reasoning < 0 {
		v.OnStartReasoning(bridge.StartReasoning{})
	}
	v.streaming.ReasoningText += cmd.Delta
	v.blocks[v.reasoning].Text = v.streaming.ReasoningText
	v.touch()
}

func (v *View) OnEndReasoning(bridge.EndReasoning) {
	v.closeReasoning()
}

func (v *View) OnShowToolCall(cmd bridge.ShowToolCall) {
	v.append(Block{Role: RoleTool, Tool: cmd.Name, Text: formatArgs(cmd.Args)})
}

func (v *View) OnShowFileEdit(cmd bridge.ShowFileEdit) {
	v.append(Block{Role: RoleFileEdit, File: cmd.File, Diff: cmd.Diff, Checkpoint: cmd.Checkpoint})
}

func (v *View) OnStreamError(cmd bridge.StreamError) {
	v.append(Block{Role: RoleError, Text: cmd.Message})
}

func (v *View) OnShowError(cmd bridge.ShowError) {
	v.notice = &Notice{Error: true, Text: cmd.Message}
}

func (v *View) OnShowInfo(cmd bridge.ShowInfo) {
	v.notice = &Notice{Text: cmd.Message}
}

// OnReplaceHistory swaps live content for the persisted page.
func (v *View) OnReplaceHistory(cmd bridge.ReplaceHistory) {
	v.blocks = blocksFromPage(cmd.Page)
	v.assistant = -1
	v.reasoning = -1
	v.streaming.AssistantText = ""
	v.streaming.ReasoningText = ""
	if cmd.Page != nil {
		v.hasMore = cmd.Page.HasMore
	}
	v.scroll = Scroll{Follow: true}
	v.prune()
	v.touch()
}

// OnPrependHistory adds an older page above the transcript. Blocks past the
// limit are not pruned here since that would drop what the user is reading.
func (v *View) OnPrependHistory(cmd bridge.PrependHistory) {
	older := blocksFromPage(cmd.Page)
	if len(older) == 0 {
		return
	}
	v.blocks = append(older, v.blocks...)
	if v.assistant >= 0 {
		v.assistant += len(older)
	}
	if v.reasoning >= 0 {
		v.reasoning += len(older)
	}
	v.scroll.Follow = false
	v.touch()
}

func (v *View) OnHistoryState(cmd bridge.HistoryState) {
	v.hasMore = cmd.HasMore
	v.loadingHistory = cmd.Loading
}

func (v *View) OnSetProcessing(cmd bridge.SetProcessing) {
	v.streaming.IsProcessing = cmd.Processing
	if !cmd.Processing {
		v.closeAssistant()
		v.closeReasoning()
	}
	v.touch()
}

func (v *View) OnDialogResolved(cmd bridge.DialogResolved) {
	if to := strings.TrimSpace(cmd.To); to != "" {
		v.dialogID = to
	}
}

func (v *View) OnSessionStatus(cmd bridge.SessionStatus) {
	v.status = cmd.Status
	v.touch()
}

func (v *View) OnDialogsChanged(bridge.DialogsChanged) {}

func (v *View) append(block Block) {
	v.blocks = append(v.blocks, block)
	v.prune()
	v.touch()
}

// prune drops the oldest blocks beyond the limit and reports the new first
// indexed block so older pages can be fetched again.
func (v *View) prune() {
	drop := len(v.blocks) - v.maxBlocks
	if drop <= 0 {
		return
	}
	v.blocks = append([]Block(nil), v.blocks[drop:]...)
	v.assistant = shift(v.assistant, drop)
	v.reasoning = shift(v.reasoning, drop)
	if idx, ok := v.FirstIdx(); ok && v.onPrune != nil {
		v.onPrune(v.dialogID, idx)
	}
}

func (v *View) closeAssistant() {
	if v.assistant >= 0 && v.assistant < len(v.blocks) {
		v.blocks[v.assistant].Live = false
	}
	v.assistant = -1
}

func (v *View) closeReasoning() {
	if v.reasoning >= 0 && v.reasoning < len(v.blocks) {
		v.blocks[v.reasoning].Live = false
		v.blocks[v.reasoning].Collapsed = true
	}
	v.reasoning = -1
}

func (v *View) touch() {
	v.revision++
}

func shift(index, drop int) int {
	if index < 0 {
		return index
	}
	index -= drop
	if index < 0 {
		return -1
	}
	return index
}

func blocksFromPage(page *types.HistoryPage) []Block {
	if page == nil {
		return nil
	}
	out := make([]Block, 0, len(page.Events))
	for _, ev := range page.Events {
		block := Block{Idx: ev.Idx, Checkpoint: ev.Checkpoint}
		switch ev.Type {
		case types.HistoryEventUser:
			block.Role = RoleUser
			block.Text = ev.Content
		case types.HistoryEventChat:
			block.Role = RoleAssistant
			block.Text = ev.Content
		case types.HistoryEventReasoning:
			block.Role = RoleReasoning
			block.Text = ev.Content
			block.Collapsed = true
		case types.HistoryEventToolCall:
			block.Role = RoleTool
			block.Tool = ev.Name
			block.Text = formatArgs(ev.Args)
		case types.HistoryEventFileEdit:
			block.Role = RoleFileEdit
			block.File = ev.File
			block.Diff = ev.Diff
		case types.HistoryEventError:
			block.Role = RoleError
			block.Text = ev.Content
		default:
			continue
		}
		out = append(out, block)
	}
	return out
}

func formatArgs(args any) string {
	switch typed := args.(type) {
	case nil:
		return ""
	case string:
		return typed
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}
