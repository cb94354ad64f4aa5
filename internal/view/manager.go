package view

import (
	"slices"
	"strings"

	"smithy/internal/bridge"
)

const DefaultMaxInactive = 3

// Manager owns the materialized views. It keeps the active view plus a
// bounded number of recently used inactive ones; views with a stream in
// flight are never evicted.
type Manager struct {
	views       map[string]*View
	recency     []string
	active      string
	hasActive   bool
	maxInactive int
	maxBlocks   int
	onPrune     PruneFunc
	onEvict     func(dialogID string)
}

type ManagerOption func(*Manager)

func WithMaxInactive(n int) ManagerOption {
	return func(m *Manager) {
		if n >= 0 {
			m.maxInactive = n
		}
	}
}

func WithMaxBlocks(n int) ManagerOption {
	return func(m *Manager) {
		m.maxBlocks = n
	}
}

func WithPruneFunc(fn PruneFunc) ManagerOption {
	return func(m *Manager) {
		m.onPrune = fn
	}
}

func WithEvictFunc(fn func(dialogID string)) ManagerOption {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		views:       map[string]*View{},
		maxInactive: DefaultMaxInactive,
		maxBlocks:   DefaultMaxBlocks,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the view of dialogID, creating it on first reference.
func (m *Manager) Get(dialogID string) *View {
	dialogID = strings.TrimSpace(dialogID)
	v, ok := m.views[dialogID]
	if !ok {
		v = New(dialogID, m.maxBlocks, m.onPrune)
		m.views[dialogID] = v
	}
	m.touch(dialogID)
	m.evict()
	return v
}

// Lookup returns a materialized view without creating one.
func (m *Manager) Lookup(dialogID string) (*View, bool) {
	v, ok := m.views[strings.TrimSpace(dialogID)]
	return v, ok
}

// Activate makes dialogID the visible view. The second result reports
// whether the view had to be created, in which case its history must be
// loaded again.
func (m *Manager) Activate(dialogID string) (*View, bool) {
	dialogID = strings.TrimSpace(dialogID)
	_, existed := m.views[dialogID]
	if prev, ok := m.views[m.active]; ok && m.hasActive {
		prev.active = false
	}
	m.active = dialogID
	m.hasActive = true
	v := m.Get(dialogID)
	v.active = true
	return v, !existed
}

func (m *Manager) Active() (*View, bool) {
	if !m.hasActive {
		return nil, false
	}
	return m.Lookup(m.active)
}

func (m *Manager) ActiveID() string { return m.active }

func (m *Manager) Destroy(dialogID string) {
	dialogID = strings.TrimSpace(dialogID)
	if _, ok := m.views[dialogID]; !ok {
		return
	}
	delete(m.views, dialogID)
	m.recency = slices.DeleteFunc(m.recency, func(id string) bool { return id == dialogID })
	if m.hasActive && m.active == dialogID {
		m.active = ""
		m.hasActive = false
	}
}

// Rekey moves the view of from to to. A view already materialized under to
// is replaced, since the moving view holds the live stream.
func (m *Manager) Rekey(from, to string) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == to || to == "" {
		return
	}
	v, ok := m.views[from]
	if !ok {
		return
	}
	wasActive := m.hasActive && (m.active == from || m.active == to)
	m.Destroy(to)
	delete(m.views, from)
	m.recency = slices.DeleteFunc(m.recency, func(id string) bool { return id == from })
	v.dialogID = to
	m.views[to] = v
	m.touch(to)
	if wasActive {
		m.active = to
		m.hasActive = true
		v.active = true
	}
}

// Apply routes cmd to its view. Commands for views that are not
// materialized are dropped; the view reloads history when it is shown again.
func (m *Manager) Apply(dialogID string, cmd bridge.Command) bool {
	if resolved, ok := cmd.(bridge.DialogResolved); ok {
		m.Rekey(resolved.From, resolved.To)
		if v, ok := m.views[strings.TrimSpace(resolved.To)]; ok {
			v.Apply(cmd)
			return true
		}
		return false
	}
	v, ok := m.Lookup(dialogID)
	if !ok {
		return false
	}
	v.Apply(cmd)
	return true
}

// IDs returns the materialized dialog ids, least recently used first.
func (m *Manager) IDs() []string {
	return slices.Clone(m.recency)
}

func (m *Manager) Len() int { return len(m.views) }

func (m *Manager) touch(dialogID string) {
	m.recency = slices.DeleteFunc(m.recency, func(id string) bool { return id == dialogID })
	m.recency = append(m.recency, dialogID)
}

func (m *Manager) evict() {
	inactive := 0
	for id := range m.views {
		if !m.hasActive || id != m.active {
			inactive++
		}
	}
	for _, id := range slices.Clone(m.recency) {
		if inactive <= m.maxInactive {
			return
		}
		if m.hasActive && id == m.active {
			continue
		}
		if m.views[id].IsProcessing() {
			continue
		}
		m.Destroy(id)
		inactive--
		if m.onEvict != nil {
			m.onEvict(id)
		}
	}
}
