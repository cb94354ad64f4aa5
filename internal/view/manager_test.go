package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"smithy/internal/bridge"
)

func TestActivateKeepsOtherViewsIntact(t *testing.T) {
	m := NewManager()
	a, created := m.Activate("a")
	require.True(t, created)
	a.Apply(bridge.SetProcessing{Processing: true})
	a.Apply(bridge.AppendAssistant{Delta: "streaming"})
	a.SetScroll(7, false)

	_, _ = m.Activate("b")
	again, created := m.Activate("a")
	require.False(t, created)
	require.Same(t, a, again)
	require.Equal(t, "streaming", again.Streaming().AssistantText)
	require.Equal(t, Scroll{Offset: 7}, again.Scroll())

	b, _ := m.Lookup("b")
	require.False(t, b.Active())
	require.True(t, again.Active())
}

func TestEvictsLeastRecentInactive(t *testing.T) {
	var evicted []string
	m := NewManager(WithEvictFunc(func(id string) { evicted = append(evicted, id) }))
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m.Activate(id)
	}
	require.Equal(t, []string{"a"}, evicted)
	require.Equal(t, 4, m.Len())
	_, ok := m.Lookup("a")
	require.False(t, ok)
}

func TestProcessingViewIsNeverEvicted(t *testing.T) {
	m := NewManager(WithMaxInactive(1))
	busy, _ := m.Activate("busy")
	busy.Apply(bridge.SetProcessing{Processing: true})
	m.Activate("x")
	m.Activate("y")
	m.Activate("z")

	_, ok := m.Lookup("busy")
	require.True(t, ok)
	_, ok = m.Lookup("x")
	require.False(t, ok)

	busy.Apply(bridge.SetProcessing{Processing: false})
	m.Activate("w")
	_, ok = m.Lookup("busy")
	require.False(t, ok)
}

func TestApplyDropsCommandsForMissingViews(t *testing.T) {
	m := NewManager()
	require.False(t, m.Apply("gone", bridge.AppendUser{Content: "x"}))
	require.Zero(t, m.Len())
}

func TestDialogResolvedRekeysView(t *testing.T) {
	m := NewManager()
	pending, _ := m.Activate("")
	pending.Apply(bridge.SetProcessing{Processing: true})
	m.Apply("", bridge.AppendUser{Content: "hi"})

	require.True(t, m.Apply("", bridge.DialogResolved{From: "", To: "fresh"}))
	_, ok := m.Lookup("")
	require.False(t, ok)
	fresh, ok := m.Lookup("fresh")
	require.True(t, ok)
	require.Same(t, pending, fresh)
	require.Equal(t, "fresh", fresh.DialogID())
	require.Equal(t, "fresh", m.ActiveID())
	require.True(t, m.Apply("fresh", bridge.SetProcessing{Processing: false}))
}

func TestDialogResolvedOntoActiveViewKeepsItActive(t *testing.T) {
	m := NewManager()
	pending := m.Get("")
	pending.Apply(bridge.SetProcessing{Processing: true})
	m.Activate("d1")

	require.True(t, m.Apply("", bridge.DialogResolved{From: "", To: "d1"}))
	active, ok := m.Active()
	require.True(t, ok)
	require.Same(t, pending, active)
	require.Equal(t, "d1", active.DialogID())
	require.True(t, active.Active())
	require.True(t, active.IsProcessing())
}

func TestNilViewDialogID(t *testing.T) {
	var v *View
	require.Empty(t, v.DialogID())
}

func TestDestroyActiveClearsActive(t *testing.T) {
	m := NewManager()
	m.Activate("a")
	m.Destroy("a")
	_, ok := m.Active()
	require.False(t, ok)
}

func TestEvictionBoundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(0, 4).Draw(t, "limit")
		m := NewManager(WithMaxInactive(limit))
		steps := rapid.SliceOfN(rapid.IntRange(0, 9), 1, 40).Draw(t, "steps")
		busy := map[string]bool{}
		for i, n := range steps {
			id := fmt.Sprintf("d%d", n)
			v, _ := m.Activate(id)
			if i%3 == 0 {
				v.Apply(bridge.SetProcessing{Processing: !busy[id]})
				busy[id] = !busy[id]
			}
			for id, processing := range busy {
				if processing {
					if _, ok := m.Lookup(id); !ok {
						t.Fatalf("processing view %s was evicted", id)
					}
				}
			}
			idle := 0
			for _, id := range m.IDs() {
				if id != m.ActiveID() && !busy[id] {
					idle++
				}
			}
			if idle > limit {
				t.Fatalf("%d idle inactive views, limit %d", idle, limit)
			}
		}
	})
}
