// Package sessionops runs approve, reset and restore against a dialog's
// session. Each operation is a single attempt: confirm if destructive, call
// the server, then reload history and refresh the session status.
package sessionops

import (
	"context"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"smithy/internal/bridge"
	"smithy/internal/logging"
	"smithy/internal/types"
)

const (
	statusTTL             = 30 * time.Second
	statusCleanupInterval = 5 * time.Minute
)

// ErrOperationCancelled is returned when the user declined a confirmation.
var ErrOperationCancelled = errors.New("operation cancelled")

type API interface {
	SessionStatus(ctx context.Context, dialogID string) (*types.SessionStatus, error)
	Approve(ctx context.Context, dialogID, message string) (*types.ApproveResult, error)
	Reset(ctx context.Context, dialogID string) (*types.ResetResult, error)
	Restore(ctx context.Context, dialogID, checkpointID string) (*types.RestoreResult, error)
}

// Prompt describes a yes/no question shown before a destructive action.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

type ConfirmerFunc func(ctx context.Context, prompt Prompt) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt.
func AlwaysConfirm() Confirmer {
	return ConfirmerFunc(func(context.Context, Prompt) (bool, error) { return true, nil })
}

type Reloader interface {
	ReloadLatest(ctx context.Context, dialogID string) error
}

type Operations struct {
	api     API
	confirm Confirmer
	reload  Reloader
	sink    bridge.Sink
	logger  logging.Logger
	status  *gocache.Cache
}

type Option func(*Operations)

func WithLogger(logger logging.Logger) Option {
	return func(o *Operations) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithSink(sink bridge.Sink) Option {
	return func(o *Operations) {
		o.sink = sink
	}
}

func New(api API, confirm Confirmer, reload Reloader, opts ...Option) *Operations {
	if confirm == nil {
		confirm = AlwaysConfirm()
	}
	o := &Operations{
		api:     api,
		confirm: confirm,
		reload:  reload,
		logger:  logging.Nop(),
		status:  gocache.New(statusTTL, statusCleanupInterval),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Operations) Approve(ctx context.Context, dialogID, message string) (*types.ApproveResult, error) {
	dialogID, err := o.validate(dialogID)
	if err != nil {
		return nil, err
	}
	result, err := o.api.Approve(ctx, dialogID, message)
	if err != nil {
		o.logger.Warn("session_approve_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
		return nil, err
	}
	if result == nil {
		result = &types.ApproveResult{}
	}
	o.logger.Info("session_approved", logging.F("dialog_id", dialogID), logging.F("commit", result.ApprovedCommit))
	o.after(ctx, dialogID)
	return result, nil
}

func (o *Operations) ResetToApproved(ctx context.Context, dialogID string) (*types.ResetResult, error) {
	dialogID, err := o.validate(dialogID)
	if err != nil {
		return nil, err
	}
	if err := o.ask(ctx, Prompt{
		Title:        "Reset changes",
		Message:      "Discard all unapproved changes and return to the last approved state?",
		ConfirmLabel: "Reset",
		CancelLabel:  "Cancel",
	}); err != nil {
		return nil, err
	}
	result, err := o.api.Reset(ctx, dialogID)
	if err != nil {
		o.logger.Warn("session_reset_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
		return nil, err
	}
	if result == nil {
		result = &types.ResetResult{}
	}
	o.logger.Info("session_reset", logging.F("dialog_id", dialogID), logging.F("reset_to", result.ResetTo))
	o.after(ctx, dialogID)
	return result, nil
}

func (o *Operations) RestoreCheckpoint(ctx context.Context, dialogID, checkpointID string) (*types.RestoreResult, error) {
	dialogID, err := o.validate(dialogID)
	if err != nil {
		return nil, err
	}
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return nil, errors.New("checkpoint id is required")
	}
	if err := o.ask(ctx, Prompt{
		Title:        "Restore checkpoint",
		Message:      "Restore files to checkpoint " + shortID(checkpointID) + "? Later changes will be lost.",
		ConfirmLabel: "Restore",
		CancelLabel:  "Cancel",
	}); err != nil {
		return nil, err
	}
	result, err := o.api.Restore(ctx, dialogID, checkpointID)
	if err != nil {
		o.logger.Warn("session_restore_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
		return nil, err
	}
	if result == nil {
		result = &types.RestoreResult{}
	}
	o.logger.Info("session_restored", logging.F("dialog_id", dialogID), logging.F("checkpoint", checkpointID))
	o.after(ctx, dialogID)
	return result, nil
}

// Status returns the cached session status, fetching it on a miss.
func (o *Operations) Status(ctx context.Context, dialogID string) (*types.SessionStatus, error) {
	dialogID, err := o.validate(dialogID)
	if err != nil {
		return nil, err
	}
	if value, ok := o.status.Get(dialogID); ok {
		if status, ok := value.(*types.SessionStatus); ok {
			return status, nil
		}
	}
	return o.RefreshStatus(ctx, dialogID)
}

// RefreshStatus fetches the status, caches it and publishes it to the
// dialog's view.
func (o *Operations) RefreshStatus(ctx context.Context, dialogID string) (*types.SessionStatus, error) {
	dialogID, err := o.validate(dialogID)
	if err != nil {
		return nil, err
	}
	status, err := o.api.SessionStatus(ctx, dialogID)
	if err != nil {
		return nil, err
	}
	o.status.SetDefault(dialogID, status)
	if o.sink != nil {
		o.sink.Emit(dialogID, bridge.SessionStatus{Status: status})
	}
	return status, nil
}

// Forget drops the cached status of a dialog.
func (o *Operations) Forget(dialogID string) {
	if o == nil {
		return
	}
	o.status.Delete(strings.TrimSpace(dialogID))
}

func (o *Operations) validate(dialogID string) (string, error) {
	if o == nil || o.api == nil {
		return "", errors.New("session operations are not configured")
	}
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return "", errors.New("dialog id is required")
	}
	return dialogID, nil
}

func (o *Operations) ask(ctx context.Context, prompt Prompt) error {
	ok, err := o.confirm.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperationCancelled
	}
	return nil
}

// after runs the post-success refresh. Its failures are logged; the
// operation itself already succeeded.
func (o *Operations) after(ctx context.Context, dialogID string) {
	o.status.Delete(dialogID)
	if o.reload != nil {
		if err := o.reload.ReloadLatest(ctx, dialogID); err != nil {
			o.logger.Warn("session_history_reload_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
		}
	}
	if _, err := o.RefreshStatus(ctx, dialogID); err != nil {
		o.logger.Warn("session_status_refresh_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
