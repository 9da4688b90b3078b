package dragdrop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
	"docket/pkg/testutil"
)

var (
	sectionA = id.SectionID("finances")
	sectionB = id.SectionID("identity")

	groupA = id.NewGroupID()
	groupB = id.NewGroupID()
	groupC = id.NewGroupID()

	pageA1 = id.NewPageID()
	pageA2 = id.NewPageID()
	pageB1 = id.NewPageID()
)

// board is the fixture most tests start from: two groups in finances, one in
// identity.
func board() Layout {
	return Layout{Sections: []SectionLayout{
		{ID: sectionA, Groups: []GroupLayout{
			{ID: groupA, Pages: []id.PageID{pageA1, pageA2}},
			{ID: groupB, Pages: []id.PageID{pageB1}},
		}},
		{ID: sectionB, Groups: []GroupLayout{
			{ID: groupC, Pages: nil},
		}},
	}}
}

func pageRef(p id.PageID) ItemRef       { return ItemRef{Kind: ItemPage, Page: p} }
func groupRef(g id.GroupID) ItemRef     { return ItemRef{Kind: ItemGroup, Group: g} }
func sectionRef(s id.SectionID) ItemRef { return ItemRef{Kind: ItemSection, Section: s} }

func TestReducePageOntoPage(t *testing.T) {
	tests := []struct {
		name      string
		event     DragEvent
		wantIndex int
		wantTo    id.GroupID
	}{
		{
			name:      "before target in another group",
			event:     DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageB1), Position: PositionBefore},
			wantIndex: 0,
			wantTo:    groupB,
		},
		{
			name:      "after target in another group",
			event:     DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageB1), Position: PositionAfter},
			wantIndex: 1,
			wantTo:    groupB,
		},
		{
			name:      "into resolves after the target",
			event:     DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageB1), Position: PositionInto},
			wantIndex: 1,
			wantTo:    groupB,
		},
		{
			name:      "reorder within the same group",
			event:     DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageA2), Position: PositionAfter},
			wantIndex: 1,
			wantTo:    groupA,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, cmd, err := Reduce(board(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, CommandMovePage, cmd.Kind)
			assert.Equal(t, tt.wantTo, cmd.ToGroup)
			assert.Equal(t, tt.wantIndex, cmd.TargetIndex)

			// The returned layout reflects the move.
			_, gi := locatePage(next, tt.event.Dragged.Page)
			require.GreaterOrEqual(t, gi, 0)
		})
	}
}

func TestReducePageOntoGroupHeaderAppends(t *testing.T) {
	next, cmd, err := Reduce(board(), DragEvent{
		Dragged:  pageRef(pageA1),
		Target:   groupRef(groupB),
		Position: PositionInto,
	})
	require.NoError(t, err)
	assert.Equal(t, CommandMovePage, cmd.Kind)
	assert.Equal(t, groupB, cmd.ToGroup)
	assert.Equal(t, 1, cmd.TargetIndex)
	assert.Equal(t, []id.PageID{pageB1, pageA1}, next.Sections[0].Groups[1].Pages)
}

func TestReduceSelfDropIsNoop(t *testing.T) {
	testutil.Given(t, "a page dragged onto itself", func(t *testing.T) {
		layout := board()
		next, cmd, err := Reduce(layout, DragEvent{
			Dragged:  pageRef(pageA1),
			Target:   pageRef(pageA1),
			Position: PositionBefore,
		})
		require.NoError(t, err)
		testutil.Then(t, "nothing changes", func(t *testing.T) {
			assert.Equal(t, CommandNone, cmd.Kind)
			assert.Equal(t, layout, next)
		})
	})
}

func TestReduceEmptiedGroupCleanup(t *testing.T) {
	t.Run("unbound group is removed after the move", func(t *testing.T) {
		layout := board()
		// Leave groupB with a single page and drag it away.
		next, cmd, err := Reduce(layout, DragEvent{
			Dragged:  pageRef(pageB1),
			Target:   groupRef(groupA),
			Position: PositionInto,
		})
		require.NoError(t, err)
		assert.Equal(t, CleanupAutoDelete, cmd.Cleanup)
		assert.Equal(t, groupB, cmd.CleanupGroup)
		require.Len(t, next.Sections[0].Groups, 1)
		assert.Equal(t, groupA, next.Sections[0].Groups[0].ID)
	})

	t.Run("bound group survives with deferred cleanup", func(t *testing.T) {
		layout := board()
		layout.Sections[0].Groups[1].Bound = true
		next, cmd, err := Reduce(layout, DragEvent{
			Dragged:  pageRef(pageB1),
			Target:   groupRef(groupA),
			Position: PositionInto,
		})
		require.NoError(t, err)
		assert.Equal(t, CleanupDeferred, cmd.Cleanup)
		assert.Equal(t, groupB, cmd.CleanupGroup)
		require.Len(t, next.Sections[0].Groups, 2)
		assert.Empty(t, next.Sections[0].Groups[1].Pages)
	})

	t.Run("same-group move never triggers cleanup", func(t *testing.T) {
		_, cmd, err := Reduce(board(), DragEvent{
			Dragged:  pageRef(pageA1),
			Target:   pageRef(pageA2),
			Position: PositionAfter,
		})
		require.NoError(t, err)
		assert.Equal(t, CleanupNone, cmd.Cleanup)
	})
}

func TestReduceGroupDrag(t *testing.T) {
	t.Run("reorders within the section", func(t *testing.T) {
		_, cmd, err := Reduce(board(), DragEvent{
			Dragged:  groupRef(groupB),
			Target:   groupRef(groupA),
			Position: PositionBefore,
		})
		require.NoError(t, err)
		assert.Equal(t, CommandReorderGroups, cmd.Kind)
		assert.Equal(t, sectionA, cmd.Section)
		assert.Equal(t, []id.GroupID{groupB, groupA}, cmd.OrderedGroups)
	})

	t.Run("drop on own section gutter moves to the end", func(t *testing.T) {
		_, cmd, err := Reduce(board(), DragEvent{
			Dragged:  groupRef(groupA),
			Target:   sectionRef(sectionA),
			Position: PositionInto,
		})
		require.NoError(t, err)
		assert.Equal(t, []id.GroupID{groupB, groupA}, cmd.OrderedGroups)
	})

	t.Run("cross-section move is rejected", func(t *testing.T) {
		layout := board()
		next, cmd, err := Reduce(layout, DragEvent{
			Dragged:  groupRef(groupA),
			Target:   groupRef(groupC),
			Position: PositionBefore,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrossSectionMove))
		assert.Equal(t, CommandNone, cmd.Kind)
		assert.Equal(t, layout, next)
	})

	t.Run("self drop is a no-op", func(t *testing.T) {
		_, cmd, err := Reduce(board(), DragEvent{
			Dragged:  groupRef(groupA),
			Target:   groupRef(groupA),
			Position: PositionBefore,
		})
		require.NoError(t, err)
		assert.Equal(t, CommandNone, cmd.Kind)
	})
}

func TestReduceUnknownItems(t *testing.T) {
	_, _, err := Reduce(board(), DragEvent{
		Dragged:  pageRef(id.NewPageID()),
		Target:   pageRef(pageA1),
		Position: PositionBefore,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, _, err = Reduce(board(), DragEvent{
		Dragged:  pageRef(pageA1),
		Target:   groupRef(id.NewGroupID()),
		Position: PositionInto,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Identical inputs must always produce identical outputs; the reducer holds
// no hidden state.
func TestReduceIsDeterministic(t *testing.T) {
	event := DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageB1), Position: PositionAfter}
	first, firstCmd, err := Reduce(board(), event)
	require.NoError(t, err)
	second, secondCmd, err := Reduce(board(), event)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, firstCmd, secondCmd)
}

// The input layout must never be mutated.
func TestReduceLeavesInputUntouched(t *testing.T) {
	layout := board()
	_, _, err := Reduce(layout, DragEvent{Dragged: pageRef(pageA1), Target: pageRef(pageB1), Position: PositionBefore})
	require.NoError(t, err)
	assert.Equal(t, board(), layout)
}
