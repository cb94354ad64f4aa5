package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"smithy/internal/bridge"
	"smithy/internal/logging"
	"smithy/internal/types"
	"smithy/internal/view"
)

// IntentRunner executes UI intents. Failures are reported back through
// the sink as notices, so the returned error is informational.
type IntentRunner interface {
	Handle(ctx context.Context, intent bridge.Intent) error
}

type Options struct {
	Runner IntentRunner
	// Connect makes the server reachable before the first intent runs.
	Connect     func(context.Context) error
	State       *types.UIState
	MaxInactive int
	MaxBlocks   int
	// Keymap defaults to types.DefaultKeymap.
	Keymap *types.Keymap
	Logger logging.Logger
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const (
	headerLines     = 1
	statusLines     = 1
	inputLines      = 1
	helpLines       = 1
	scrollStep      = 3
	inputCharLimit  = 32 * 1024
	inputPrompt     = "› "
	idlePlaceholder = "Ask the agent, or type /help"
	busyPlaceholder = "Streaming… esc to stop"
)

type Model struct {
	ctx     context.Context
	runner  IntentRunner
	connect func(context.Context) error
	logger  logging.Logger
	keys    *types.Keymap

	views   *view.Manager
	evicted map[string]bool
	pending []bridge.Intent

	dialogs   []*types.Dialog
	currentID string
	restoreID string
	selected  int
	focus     focusArea
	connected bool

	viewport   viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	confirm    *ConfirmController
	toast      toast
	transcript transcriptRenderer

	width  int
	height int
	state  *types.UIState

	copyText func(string) error
	now      func() time.Time
}

func NewModel(ctx context.Context, opts Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	state := opts.State
	if state == nil {
		state = &types.UIState{}
	}
	keys := opts.Keymap
	if keys == nil {
		keys = types.DefaultKeymap()
	}

	input := textinput.New()
	input.Prompt = inputPrompt
	input.Placeholder = idlePlaceholder
	input.CharLimit = inputCharLimit
	input.Focus()

	m := &Model{
		ctx:       ctx,
		runner:    opts.Runner,
		connect:   opts.Connect,
		logger:    logger,
		keys:      keys,
		evicted:   map[string]bool{},
		restoreID: strings.TrimSpace(state.ActiveDialogID),
		viewport:  viewport.New(0, 0),
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		confirm:   NewConfirmController(),
		state:     state,
		copyText:  copyTextToClipboard,
		now:       time.Now,
	}
	maxInactive := opts.MaxInactive
	if maxInactive <= 0 {
		maxInactive = view.DefaultMaxInactive
	}
	m.views = view.NewManager(
		view.WithMaxInactive(maxInactive),
		view.WithMaxBlocks(opts.MaxBlocks),
		view.WithPruneFunc(m.onPrune),
		view.WithEvictFunc(m.onEvict),
	)
	// A message typed before any dialog exists goes to the unnamed view.
	m.views.Activate("")
	m.input.SetValue(state.Draft(""))
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.connectCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case connectedMsg:
		cmds = append(cmds, m.onConnected(msg.err))
	case intentDoneMsg:
		cmds = append(cmds, m.onIntentDone(msg))
	case commandMsg:
		cmds = append(cmds, m.applyCommand(msg.dialogID, msg.cmd))
	case confirmRequestMsg:
		reply := msg.reply
		m.confirm.Open(msg.prompt, func(ok bool) { reply <- ok })
	case copyResultMsg:
		if msg.err != nil {
			cmds = append(cmds, m.showError("Copy failed: "+msg.err.Error()))
		} else {
			cmds = append(cmds, m.showInfo("Copied last reply"))
		}
	case toastExpiredMsg:
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.drainPending()...)
	return m, tea.Batch(cmds...)
}

// UIState returns the state to persist, including the current draft.
func (m *Model) UIState() *types.UIState {
	m.state.SetDraft(m.views.ActiveID(), m.input.Value())
	m.state.ActiveDialogID = m.views.ActiveID()
	return m.state
}

func (m *Model) activeView() *view.View {
	v, _ := m.views.Active()
	return v
}

func (m *Model) connectCmd() tea.Cmd {
	connect := m.connect
	ctx := m.ctx
	return func() tea.Msg {
		if connect == nil {
			return connectedMsg{}
		}
		return connectedMsg{err: connect(ctx)}
	}
}

func (m *Model) onConnected(err error) tea.Cmd {
	if err != nil {
		m.connected = false
		m.logger.Warn("server_connect_failed", logging.F("error", err))
		return m.showError("Server unavailable: " + err.Error())
	}
	m.connected = true
	return m.runIntent(bridge.Init{})
}

func (m *Model) onIntentDone(msg intentDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Debug("intent_failed", logging.F("error", msg.err))
		return nil
	}
	if _, ok := msg.intent.(bridge.Init); !ok {
		return nil
	}
	// Reopen the dialog from the last session if the server still has it.
	restore := m.restoreID
	m.restoreID = ""
	if restore == "" || restore == m.views.ActiveID() || m.dialogIndex(restore) < 0 {
		return nil
	}
	return m.activate(restore, true)
}

func (m *Model) runIntent(intent bridge.Intent) tea.Cmd {
	if m.runner == nil || intent == nil {
		return nil
	}
	runner := m.runner
	ctx := m.ctx
	return func() tea.Msg {
		return intentDoneMsg{intent: intent, err: runner.Handle(ctx, intent)}
	}
}

func (m *Model) drainPending() []tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(m.pending))
	for _, intent := range m.pending {
		cmds = append(cmds, m.runIntent(intent))
	}
	m.pending = nil
	return cmds
}

func (m *Model) onPrune(dialogID string, firstIdx int) {
	if dialogID == "" {
		return
	}
	m.pending = append(m.pending, bridge.ReportVisible{DialogID: dialogID, FirstIdx: firstIdx})
}

func (m *Model) onEvict(dialogID string) {
	m.evicted[dialogID] = true
}

// applyCommand routes a backend command. Dialog list updates and notices
// belong to the whole UI; everything else goes to the addressed view.
func (m *Model) applyCommand(dialogID string, cmd bridge.Command) tea.Cmd {
	switch c := cmd.(type) {
	case bridge.DialogsChanged:
		return m.onDialogsChanged(c)
	case bridge.ShowError:
		return m.showError(c.Message)
	case bridge.ShowInfo:
		return m.showInfo(c.Message)
	case bridge.DialogResolved:
		m.state.SetDraft(c.To, m.state.Draft(c.From))
		m.state.SetDraft(c.From, "")
	}

	prevTotal := m.viewport.TotalLineCount()
	prevOffset := m.viewport.YOffset
	if !m.views.Apply(dialogID, cmd) {
		return nil
	}
	target := dialogID
	if resolved, ok := cmd.(bridge.DialogResolved); ok {
		target = resolved.To
	}
	if target != m.views.ActiveID() {
		return nil
	}
	if _, ok := cmd.(bridge.SetProcessing); ok {
		m.syncPlaceholder()
	}
	if _, ok := cmd.(bridge.PrependHistory); ok {
		m.refreshViewport()
		offset := prevOffset + m.viewport.TotalLineCount() - prevTotal
		m.viewport.SetYOffset(offset)
		m.activeView().SetScroll(m.viewport.YOffset, false)
		return nil
	}
	m.refreshViewport()
	return nil
}

func (m *Model) onDialogsChanged(c bridge.DialogsChanged) tea.Cmd {
	removed := map[string]bool{}
	for _, dialog := range m.dialogs {
		removed[dialog.ID] = true
	}
	m.dialogs = make([]*types.Dialog, 0, len(c.Dialogs))
	for _, dialog := range c.Dialogs {
		if dialog == nil {
			continue
		}
		delete(removed, dialog.ID)
		m.dialogs = append(m.dialogs, dialog)
	}

	var cmd tea.Cmd
	// Only a change of the server's current dialog moves the UI, so a
	// stale refresh cannot undo a switch the user just made.
	current := strings.TrimSpace(c.CurrentDialogID)
	if current != m.currentID {
		m.currentID = current
		if current != m.views.ActiveID() {
			cmd = m.activate(current, false)
		}
	}
	for id := range removed {
		if id != m.views.ActiveID() {
			m.views.Destroy(id)
			delete(m.evicted, id)
			m.state.SetDraft(id, "")
		}
	}
	m.clampSelection()
	return cmd
}

// activate shows dialogID. A user switch tells the backend; a switch the
// backend made only needs a reload when the view had been evicted.
func (m *Model) activate(dialogID string, notify bool) tea.Cmd {
	m.state.SetDraft(m.views.ActiveID(), m.input.Value())
	_, created := m.views.Activate(dialogID)
	reload := created && m.evicted[dialogID]
	delete(m.evicted, dialogID)

	m.state.ActiveDialogID = dialogID
	m.input.SetValue(m.state.Draft(dialogID))
	m.input.CursorEnd()
	if idx := m.dialogIndex(dialogID); idx >= 0 {
		m.selected = idx
	}
	m.syncPlaceholder()
	m.transcript.invalidate()
	m.refreshViewport()

	if dialogID == "" || (!notify && !reload) {
		return nil
	}
	return m.runIntent(bridge.SwitchDialog{DialogID: dialogID, Reload: reload})
}

func (m *Model) refreshViewport() {
	v := m.activeView()
	if v == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.transcript.render(v, m.viewport.Width))
	scroll := v.Scroll()
	if scroll.Follow {
		m.viewport.GotoBottom()
		return
	}
	m.viewport.SetYOffset(scroll.Offset)
}

// scroll moves the transcript and asks for older history once the top is
// reached.
func (m *Model) scroll(lines int) tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	if lines < 0 {
		m.viewport.ScrollUp(-lines)
	} else {
		m.viewport.ScrollDown(lines)
	}
	v.SetScroll(m.viewport.YOffset, m.viewport.AtBottom())
	if lines < 0 && m.viewport.AtTop() && v.HasMore() && !v.LoadingHistory() && v.DialogID() != "" {
		return m.runIntent(bridge.LoadMore{DialogID: v.DialogID()})
	}
	return nil
}

func (m *Model) syncPlaceholder() {
	if m.activeView().IsProcessing() {
		m.input.Placeholder = busyPlaceholder
		return
	}
	m.input.Placeholder = idlePlaceholder
}

func (m *Model) dialogIndex(id string) int {
	for i, dialog := range m.dialogs {
		if dialog.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) dialogTitle(id string) string {
	if idx := m.dialogIndex(id); idx >= 0 {
		return m.dialogs[idx].DisplayTitle()
	}
	if id == "" {
		return "New conversation"
	}
	return id
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.dialogs) {
		m.selected = len(m.dialogs) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) showError(message string) tea.Cmd {
	return m.showToast(toastLevelError, message)
}

func (m *Model) showInfo(message string) tea.Cmd {
	return m.showToast(toastLevelInfo, message)
}

func (m *Model) showToast(level toastLevel, message string) tea.Cmd {
	if !m.toast.show(level, message, m.now()) {
		return nil
	}
	until := m.toast.until
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{until: until} })
}
