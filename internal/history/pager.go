package history

import (
	"context"
	"strings"
	"sync"

	"smithy/internal/logging"
	"smithy/internal/notify"
	"smithy/internal/types"
)

const PageSize = 20

type Fetcher interface {
	History(ctx context.Context, dialogID string, limit, before int) (*types.HistoryPage, error)
}

type FetcherFunc func(ctx context.Context, dialogID string, limit, before int) (*types.HistoryPage, error)

func (f FetcherFunc) History(ctx context.Context, dialogID string, limit, before int) (*types.HistoryPage, error) {
	return f(ctx, dialogID, limit, before)
}

// State is a read-only snapshot published on every change.
type State struct {
	DialogID string
	Cursor   *int
	HasMore  bool
	Loading  bool
}

// Pager walks a dialog's history backwards one page at a time. At most one
// load is in flight; overlapping calls are dropped, not queued.
type Pager struct {
	fetcher Fetcher
	logger  logging.Logger

	mu       sync.Mutex
	dialogID string
	cursor   *int
	hasMore  bool
	loading  bool

	changes notify.Emitter[State]
}

func NewPager(fetcher Fetcher, logger logging.Logger) *Pager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pager{fetcher: fetcher, logger: logger}
}

// LoadLatest fetches the most recent page and moves the cursor to its
// first_idx. It returns nil without a request while another load runs.
func (p *Pager) LoadLatest(ctx context.Context, dialogID string) (*types.HistoryPage, error) {
	if p == nil {
		return nil, nil
	}
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return nil, nil
	}
	if !p.begin() {
		p.logger.Debug("history_load_dropped", logging.F("dialog_id", dialogID), logging.F("kind", "latest"))
		return nil, nil
	}
	page, err := p.fetcher.History(ctx, dialogID, PageSize, 0)
	p.end(dialogID, page, err, true)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// LoadPrevious fetches the page older than the cursor. It returns nil
// without a request while loading, when the server reported no more pages,
// before any LoadLatest, when the cursor is at the first event, or when the
// cursor belongs to another dialog.
func (p *Pager) LoadPrevious(ctx context.Context, dialogID string) (*types.HistoryPage, error) {
	if p == nil {
		return nil, nil
	}
	dialogID = strings.TrimSpace(dialogID)
	p.mu.Lock()
	// Nothing precedes index 0, and before=0 would fetch the latest page.
	if p.loading || !p.hasMore || p.cursor == nil || *p.cursor <= 0 || p.dialogID != dialogID {
		p.mu.Unlock()
		return nil, nil
	}
	before := *p.cursor
	p.loading = true
	state := p.snapshotLocked()
	p.mu.Unlock()
	p.changes.Emit(state)

	page, err := p.fetcher.History(ctx, dialogID, PageSize, before)
	p.end(dialogID, page, err, false)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// SetVisibleFirstIdx reports that rendered history was pruned up to idx.
// The cursor only moves forward; moving it re-arms HasMore so the next
// LoadPrevious refetches what was pruned.
func (p *Pager) SetVisibleFirstIdx(idx int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.cursor == nil || idx <= *p.cursor {
		p.mu.Unlock()
		return
	}
	next := idx
	p.cursor = &next
	p.hasMore = true
	state := p.snapshotLocked()
	p.mu.Unlock()
	p.changes.Emit(state)
}

func (p *Pager) HasMore() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

func (p *Pager) IsLoading() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Pager) State() State {
	if p == nil {
		return State{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn for loading transitions and cursor changes.
func (p *Pager) Subscribe(fn func(State)) func() {
	if p == nil {
		return func() {}
	}
	return p.changes.Subscribe(fn)
}

func (p *Pager) begin() bool {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return false
	}
	p.loading = true
	state := p.snapshotLocked()
	p.mu.Unlock()
	p.changes.Emit(state)
	return true
}

func (p *Pager) end(dialogID string, page *types.HistoryPage, err error, latest bool) {
	p.mu.Lock()
	p.loading = false
	if err == nil && page != nil {
		if latest {
			p.dialogID = dialogID
		}
		p.cursor = copyInt(page.FirstIdx)
		p.hasMore = page.HasMore
	}
	state := p.snapshotLocked()
	p.mu.Unlock()
	if err != nil {
		p.logger.Warn("history_load_failed", logging.F("dialog_id", dialogID), logging.F("error", err))
	}
	p.changes.Emit(state)
}

func (p *Pager) snapshotLocked() State {
	return State{
		DialogID: p.dialogID,
		Cursor:   copyInt(p.cursor),
		HasMore:  p.hasMore,
		Loading:  p.loading,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
