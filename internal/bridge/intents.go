package bridge

import "context"

// Intent is a UI to backend request.
type Intent interface {
	Accept(ctx context.Context, h IntentHandler) error
	intent()
}

type IntentHandler interface {
	OnInit(context.Context, Init) error
	OnSendMessage(context.Context, SendMessage) error
	OnStopStream(context.Context, StopStream) error
	OnLoadMore(context.Context, LoadMore) error
	OnReportVisible(context.Context, ReportVisible) error
	OnSwitchDialog(context.Context, SwitchDialog) error
	OnCreateDialog(context.Context, CreateDialog) error
	OnRenameDialog(context.Context, RenameDialog) error
	OnDeleteDialog(context.Context, DeleteDialog) error
	OnApprove(context.Context, Approve) error
	OnResetToApproved(context.Context, ResetToApproved) error
	OnRestoreCheckpoint(context.Context, RestoreCheckpoint) error
	OnOpenFile(context.Context, OpenFile) error
}

// Init is sent once the UI is ready to render.
type Init struct{}

type SendMessage struct {
	DialogID    string
	Text        string
	CurrentFile string
	OpenFiles   []string
}

type StopStream struct {
	DialogID string
}

type LoadMore struct {
	DialogID string
}

// ReportVisible tells the backend that rendered history before FirstIdx
// was pruned.
type ReportVisible struct {
	DialogID string
	FirstIdx int
}

// SwitchDialog makes DialogID current. Reload asks for the latest history
// page even if the dialog was loaded before, for a view that was evicted.
type SwitchDialog struct {
	DialogID string
	Reload   bool
}

type CreateDialog struct {
	Title string
}

type RenameDialog struct {
	DialogID string
	Title    string
}

type DeleteDialog struct {
	DialogID string
}

type Approve struct {
	DialogID string
	Message  string
}

type ResetToApproved struct {
	DialogID string
}

type RestoreCheckpoint struct {
	DialogID     string
	CheckpointID string
}

type OpenFile struct {
	Path string
}

func (i Init) Accept(ctx context.Context, h IntentHandler) error          { return h.OnInit(ctx, i) }
func (i SendMessage) Accept(ctx context.Context, h IntentHandler) error   { return h.OnSendMessage(ctx, i) }
func (i StopStream) Accept(ctx context.Context, h IntentHandler) error    { return h.OnStopStream(ctx, i) }
func (i LoadMore) Accept(ctx context.Context, h IntentHandler) error      { return h.OnLoadMore(ctx, i) }
func (i ReportVisible) Accept(ctx context.Context, h IntentHandler) error { return h.OnReportVisible(ctx, i) }
func (i SwitchDialog) Accept(ctx context.Context, h IntentHandler) error  { return h.OnSwitchDialog(ctx, i) }
func (i CreateDialog) Accept(ctx context.Context, h IntentHandler) error  { return h.OnCreateDialog(ctx, i) }
func (i RenameDialog) Accept(ctx context.Context, h IntentHandler) error  { return h.OnRenameDialog(ctx, i) }
func (i DeleteDialog) Accept(ctx context.Context, h IntentHandler) error  { return h.OnDeleteDialog(ctx, i) }
func (i Approve) Accept(ctx context.Context, h IntentHandler) error       { return h.OnApprove(ctx, i) }
func (i ResetToApproved) Accept(ctx context.Context, h IntentHandler) error {
	return h.OnResetToApproved(ctx, i)
}
func (i RestoreCheckpoint) Accept(ctx context.Context, h IntentHandler) error {
	return h.OnRestoreCheckpoint(ctx, i)
}
func (i OpenFile) Accept(ctx context.Context, h IntentHandler) error { return h.OnOpenFile(ctx, i) }

func (Init) intent()              {}
func (SendMessage) intent()       {}
func (StopStream) intent()        {}
func (LoadMore) intent()          {}
func (ReportVisible) intent()     {}
func (SwitchDialog) intent()      {}
func (CreateDialog) intent()      {}
func (RenameDialog) intent()      {}
func (DeleteDialog) intent()      {}
func (Approve) intent()           {}
func (ResetToApproved) intent()   {}
func (RestoreCheckpoint) intent() {}
func (OpenFile) intent()          {}
