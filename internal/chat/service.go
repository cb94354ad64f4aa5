package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"smithy/internal/bridge"
	"smithy/internal/client"
	"smithy/internal/dialogs"
	"smithy/internal/editor"
	"smithy/internal/history"
	"smithy/internal/logging"
	"smithy/internal/sessionops"
	"smithy/internal/types"
)

const maxContextFileBytes = 128 * 1024

type Options struct {
	Backend   Backend
	Sink      bridge.Sink
	Confirmer sessionops.Confirmer
	Opener    editor.Opener
	AutoOpen  bool
	Workspace string
	Logger    logging.Logger
}

// Service is the backend side of the bridge: it turns UI intents into
// server calls and streams, and publishes the results as commands.
type Service struct {
	backend    Backend
	sink       bridge.Sink
	opener     editor.Opener
	workspace  string
	logger     logging.Logger
	registry   *dialogs.Registry
	ops        *sessionops.Operations
	dispatcher *Dispatcher

	mu       sync.Mutex
	pagers   map[string]*history.Pager
	sessions map[string]StreamSession
}

func NewService(opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	opener := opts.Opener
	if opener == nil {
		opener = editor.Nop()
	}
	s := &Service{
		backend:   opts.Backend,
		sink:      opts.Sink,
		opener:    opener,
		workspace: strings.TrimSpace(opts.Workspace),
		logger:    logger,
		pagers:    map[string]*history.Pager{},
		sessions:  map[string]StreamSession{},
	}
	s.registry = dialogs.NewRegistry(opts.Backend, logger)
	s.registry.Subscribe(func(snap dialogs.Snapshot) {
		s.sink.Emit("", bridge.DialogsChanged{Dialogs: snap.Dialogs, CurrentDialogID: snap.CurrentDialogID})
	})
	s.ops = sessionops.New(opts.Backend, opts.Confirmer, ReloaderFunc(s.ReloadLatest),
		sessionops.WithSink(opts.Sink),
		sessionops.WithLogger(logger),
	)
	s.dispatcher = NewDispatcher(opts.Sink, ReloaderFunc(s.ReloadLatest),
		WithOpener(opener, opts.AutoOpen),
		WithDispatcherLogger(logger),
	)
	return s, nil
}

func (s *Service) Registry() *dialogs.Registry { return s.registry }

func (s *Service) Operations() *sessionops.Operations { return s.ops }

// Handle runs intent and reports any failure to the UI as a notice. The
// error is returned as well for callers without a UI.
func (s *Service) Handle(ctx context.Context, intent bridge.Intent) error {
	if s == nil || intent == nil {
		return nil
	}
	err := intent.Accept(ctx, s)
	switch {
	case err == nil:
	case errors.Is(err, sessionops.ErrOperationCancelled):
		s.sink.Emit("", bridge.ShowInfo{Message: "Operation cancelled"})
	case errors.Is(err, context.Canceled):
	default:
		s.sink.Emit("", bridge.ShowError{Message: describe(err)})
	}
	return err
}

// ReloadLatest loads the latest history page of dialogID and replaces the
// dialog's transcript with it. A load dropped because another one is
// running is not an error.
func (s *Service) ReloadLatest(ctx context.Context, dialogID string) error {
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return nil
	}
	page, err := s.Pager(dialogID).LoadLatest(ctx, dialogID)
	if err != nil {
		s.sink.Emit(dialogID, bridge.ShowError{Message: "Failed to load history: " + describe(err)})
		return err
	}
	if page != nil {
		s.sink.Emit(dialogID, bridge.ReplaceHistory{Page: page})
	}
	return nil
}

// Pager returns the history pager of dialogID, creating it on first use.
func (s *Service) Pager(dialogID string) *history.Pager {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pager, ok := s.pagers[dialogID]; ok {
		return pager
	}
	pager := history.NewPager(s.backend, s.logger)
	pager.Subscribe(func(state history.State) {
		s.sink.Emit(dialogID, bridge.HistoryState{HasMore: state.HasMore, Loading: state.Loading})
	})
	s.pagers[dialogID] = pager
	return pager
}

func (s *Service) Streaming(dialogID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(dialogID)]
	return ok && session.Active()
}

func (s *Service) OnInit(ctx context.Context, _ bridge.Init) error {
	if _, err := s.registry.LoadDialogs(ctx); err != nil {
		return err
	}
	current := s.registry.CurrentDialogID()
	if current == "" {
		if recent, ok := s.registry.MostRecent(); ok {
			return s.switchTo(ctx, recent.ID)
		}
		return nil
	}
	return s.openDialog(ctx, current, false)
}

func (s *Service) OnSendMessage(ctx context.Context, in bridge.SendMessage) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return errors.New("message is empty")
	}
	key := strings.TrimSpace(in.DialogID)
	session := s.session(key)
	req := client.NewChatRequest(key, text, s.chatContext(in))

	s.sink.Emit(key, bridge.SetProcessing{Processing: true})
	out := s.dispatcher.Run(ctx, key, session.StreamChat(ctx, req))

	if out.DialogID != key {
		s.mu.Lock()
		if s.sessions[key] == session {
			delete(s.sessions, key)
			s.sessions[out.DialogID] = session
		}
		s.mu.Unlock()
		if _, err := s.registry.LoadDialogs(ctx); err != nil {
			s.logger.Warn("dialog_refresh_failed", logging.F("error", err))
		}
	}
	if out.Err == nil && out.DialogID != "" {
		if _, err := s.ops.RefreshStatus(ctx, out.DialogID); err != nil {
			s.logger.Debug("session_status_refresh_failed", logging.F("dialog_id", out.DialogID), logging.F("error", err))
		}
	}
	return nil
}

func (s *Service) OnStopStream(_ context.Context, in bridge.StopStream) error {
	s.mu.Lock()
	session, ok := s.sessions[strings.TrimSpace(in.DialogID)]
	if !ok || !session.Active() {
		// A stream started without a dialog keeps the empty key until it
		// ends, even after the server assigned one.
		session, ok = s.sessions[""]
	}
	s.mu.Unlock()
	if ok {
		session.Cancel()
	}
	return nil
}

func (s *Service) OnLoadMore(ctx context.Context, in bridge.LoadMore) error {
	dialogID := strings.TrimSpace(in.DialogID)
	if dialogID == "" {
		return nil
	}
	page, err := s.Pager(dialogID).LoadPrevious(ctx, dialogID)
	if err != nil {
		return err
	}
	if page != nil {
		s.sink.Emit(dialogID, bridge.PrependHistory{Page: page})
	}
	return nil
}

func (s *Service) OnReportVisible(_ context.Context, in bridge.ReportVisible) error {
	dialogID := strings.TrimSpace(in.DialogID)
	if dialogID == "" {
		return nil
	}
	s.Pager(dialogID).SetVisibleFirstIdx(in.FirstIdx)
	return nil
}

func (s *Service) OnSwitchDialog(ctx context.Context, in bridge.SwitchDialog) error {
	if err := s.registry.SwitchDialog(ctx, in.DialogID); err != nil {
		return err
	}
	return s.openDialog(ctx, strings.TrimSpace(in.DialogID), in.Reload)
}

func (s *Service) OnCreateDialog(ctx context.Context, in bridge.CreateDialog) error {
	dialog, err := s.registry.CreateDialog(ctx, in.Title)
	if err != nil {
		return err
	}
	return s.switchTo(ctx, dialog.ID)
}

func (s *Service) OnRenameDialog(ctx context.Context, in bridge.RenameDialog) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return errors.New("title is required")
	}
	return s.registry.UpdateDialog(ctx, in.DialogID, title)
}

func (s *Service) OnDeleteDialog(ctx context.Context, in bridge.DeleteDialog) error {
	dialogID := strings.TrimSpace(in.DialogID)
	if err := s.registry.DeleteDialog(ctx, dialogID); err != nil {
		return err
	}
	s.mu.Lock()
	if session, ok := s.sessions[dialogID]; ok {
		session.Cancel()
		delete(s.sessions, dialogID)
	}
	delete(s.pagers, dialogID)
	s.mu.Unlock()
	s.ops.Forget(dialogID)

	if s.registry.CurrentDialogID() != "" {
		return nil
	}
	if next, ok := s.registry.MostRecent(); ok {
		return s.switchTo(ctx, next.ID)
	}
	return nil
}

func (s *Service) OnApprove(ctx context.Context, in bridge.Approve) error {
	result, err := s.ops.Approve(ctx, in.DialogID, in.Message)
	if err != nil {
		return err
	}
	s.sink.Emit(in.DialogID, bridge.ShowInfo{Message: approvedMessage(result)})
	return nil
}

func (s *Service) OnResetToApproved(ctx context.Context, in bridge.ResetToApproved) error {
	if _, err := s.ops.ResetToApproved(ctx, in.DialogID); err != nil {
		return err
	}
	s.sink.Emit(in.DialogID, bridge.ShowInfo{Message: "Changes reset to the last approved state"})
	return nil
}

func (s *Service) OnRestoreCheckpoint(ctx context.Context, in bridge.RestoreCheckpoint) error {
	if _, err := s.ops.RestoreCheckpoint(ctx, in.DialogID, in.CheckpointID); err != nil {
		return err
	}
	s.sink.Emit(in.DialogID, bridge.ShowInfo{Message: "Checkpoint restored"})
	return nil
}

func (s *Service) OnOpenFile(ctx context.Context, in bridge.OpenFile) error {
	return s.opener.Open(ctx, in.Path)
}

func (s *Service) switchTo(ctx context.Context, dialogID string) error {
	if err := s.registry.SwitchDialog(ctx, dialogID); err != nil {
		return err
	}
	return s.openDialog(ctx, strings.TrimSpace(dialogID), false)
}

// openDialog loads history the first time a dialog is shown, or when reload
// is set, and refreshes its session status. A streaming dialog keeps its
// live transcript.
func (s *Service) openDialog(ctx context.Context, dialogID string, reload bool) error {
	loaded := s.Pager(dialogID).State().DialogID == dialogID
	if (reload || !loaded) && !s.Streaming(dialogID) {
		// ReloadLatest already reported the failure.
		if err := s.ReloadLatest(ctx, dialogID); err != nil {
			return nil
		}
	}
	if _, err := s.ops.Status(ctx, dialogID); err != nil {
		s.logger.Debug("session_status_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
	}
	return nil
}

// session returns the stream session of a dialog. A finished session is
// replaced so it binds to the current API client.
func (s *Service) session(key string) StreamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok && session.Active() {
		return session
	}
	session := s.backend.NewStreamSession()
	s.sessions[key] = session
	return session
}

func (s *Service) chatContext(in bridge.SendMessage) *client.ChatContext {
	current := strings.TrimSpace(in.CurrentFile)
	if current == "" && len(in.OpenFiles) == 0 {
		return nil
	}
	ctx := &client.ChatContext{}
	if current != "" {
		file := client.FileContext{Path: current, Language: languageOf(current)}
		if content, err := s.readContextFile(current); err == nil {
			file.Content = content
		} else {
			s.logger.Debug("context_file_unreadable", logging.F("path", current), logging.F("error", err))
		}
		ctx.CurrentFile = &file
	}
	for _, path := range in.OpenFiles {
		path = strings.TrimSpace(path)
		if path == "" || path == current {
			continue
		}
		ctx.OpenFiles = append(ctx.OpenFiles, client.FileContext{Path: path, Language: languageOf(path)})
	}
	return ctx
}

func (s *Service) readContextFile(path string) (string, error) {
	if !filepath.IsAbs(path) && s.workspace != "" {
		path = filepath.Join(s.workspace, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxContextFileBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func languageOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".md":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

func approvedMessage(result *types.ApproveResult) string {
	if result == nil || result.CommitsApproved <= 0 {
		return "Changes approved"
	}
	if result.CommitsApproved == 1 {
		return "Approved 1 change set"
	}
	return "Approved " + strconv.Itoa(result.CommitsApproved) + " change sets"
}

func describe(err error) string {
	if apiErr := client.AsAPIError(err); apiErr != nil {
		msg := strings.TrimSpace(apiErr.Message)
		if len(apiErr.ValidationErrors) > 0 {
			msg += ": " + strings.Join(apiErr.ValidationErrors, "; ")
		}
		return msg
	}
	return err.Error()
}
