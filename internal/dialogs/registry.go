package dialogs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"smithy/internal/logging"
	"smithy/internal/notify"
	"smithy/internal/types"
)

type API interface {
	ListDialogs(ctx context.Context) (*types.DialogList, error)
	CreateDialog(ctx context.Context, title string) (*types.Dialog, error)
	SetCurrentDialog(ctx context.Context, id string) error
	UpdateDialog(ctx context.Context, id, title string) error
	DeleteDialog(ctx context.Context, id string) error
}

// Snapshot is published after every successful change.
type Snapshot struct {
	Dialogs         []*types.Dialog
	CurrentDialogID string
}

// Registry caches the dialog list. Every mutation is applied to the cache
// only after the server accepted it.
type Registry struct {
	api    API
	logger logging.Logger

	mu        sync.Mutex
	dialogs   []*types.Dialog
	currentID string
	loaded    bool

	changes notify.Emitter[Snapshot]
}

func NewRegistry(api API, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{api: api, logger: logger}
}

func (r *Registry) LoadDialogs(ctx context.Context) ([]*types.Dialog, error) {
	if r == nil || r.api == nil {
		return nil, errors.New("dialog registry is not configured")
	}
	list, err := r.api.ListDialogs(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*types.Dialog, 0, len(list.Items))
	for _, item := range list.Items {
		items = append(items, types.CloneDialog(item))
	}
	r.mu.Lock()
	r.dialogs = items
	r.currentID = strings.TrimSpace(list.CurrentDialogID)
	r.loaded = true
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.changes.Emit(snapshot)
	return snapshot.Dialogs, nil
}

func (r *Registry) CreateDialog(ctx context.Context, title string) (*types.Dialog, error) {
	if r == nil || r.api == nil {
		return nil, errors.New("dialog registry is not configured")
	}
	dialog, err := r.api.CreateDialog(ctx, title)
	if err != nil {
		return nil, err
	}
	if dialog == nil {
		return nil, errors.New("server returned no dialog")
	}
	r.mu.Lock()
	r.removeLocked(dialog.ID)
	r.dialogs = append([]*types.Dialog{types.CloneDialog(dialog)}, r.dialogs...)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.logger.Info("dialog_created", logging.F("dialog_id", dialog.ID))
	r.changes.Emit(snapshot)
	return types.CloneDialog(dialog), nil
}

func (r *Registry) SwitchDialog(ctx context.Context, id string) error {
	if r == nil || r.api == nil {
		return errors.New("dialog registry is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("dialog id is required")
	}
	if err := r.api.SetCurrentDialog(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	r.currentID = id
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.changes.Emit(snapshot)
	return nil
}

func (r *Registry) UpdateDialog(ctx context.Context, id, title string) error {
	if r == nil || r.api == nil {
		return errors.New("dialog registry is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("dialog id is required")
	}
	if err := r.api.UpdateDialog(ctx, id, title); err != nil {
		return err
	}
	r.mu.Lock()
	for _, dialog := range r.dialogs {
		if dialog.ID == id {
			value := title
			dialog.Title = &value
			break
		}
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.changes.Emit(snapshot)
	return nil
}

// DeleteDialog removes the dialog. When it was the current dialog the
// current id becomes empty; callers pick a replacement, usually MostRecent.
func (r *Registry) DeleteDialog(ctx context.Context, id string) error {
	if r == nil || r.api == nil {
		return errors.New("dialog registry is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("dialog id is required")
	}
	if err := r.api.DeleteDialog(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	r.removeLocked(id)
	if r.currentID == id {
		r.currentID = ""
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.logger.Info("dialog_deleted", logging.F("dialog_id", id))
	r.changes.Emit(snapshot)
	return nil
}

func (r *Registry) CurrentDialogID() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentID
}

func (r *Registry) Loaded() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Dialogs returns copies of the cached dialogs in server order.
func (r *Registry) Dialogs() []*types.Dialog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked().Dialogs
}

func (r *Registry) Get(id string) (*types.Dialog, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dialog := range r.dialogs {
		if dialog.ID == id {
			return types.CloneDialog(dialog), true
		}
	}
	return nil, false
}

// MostRecent returns the most recently updated cached dialog.
func (r *Registry) MostRecent() (*types.Dialog, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dialogs) == 0 {
		return nil, false
	}
	ordered := append([]*types.Dialog(nil), r.dialogs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
	})
	return types.CloneDialog(ordered[0]), true
}

func (r *Registry) Subscribe(fn func(Snapshot)) func() {
	if r == nil {
		return func() {}
	}
	return r.changes.Subscribe(fn)
}

func (r *Registry) removeLocked(id string) {
	out := r.dialogs[:0]
	for _, dialog := range r.dialogs {
		if dialog.ID != id {
			out = append(out, dialog)
		}
	}
	r.dialogs = out
}

func (r *Registry) snapshotLocked() Snapshot {
	items := make([]*types.Dialog, 0, len(r.dialogs))
	for _, dialog := range r.dialogs {
		items = append(items, types.CloneDialog(dialog))
	}
	return Snapshot{Dialogs: items, CurrentDialogID: r.currentID}
}
