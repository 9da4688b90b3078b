// Package dragdrop maps a drag gesture onto a document store command. The
// reducer is a pure transition function: it never touches the store, so the
// whole gesture grammar is testable in isolation. Given identical inputs it
// always returns identical outputs.
package dragdrop

import (
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// DropPosition orients the drop relative to the target.
type DropPosition string

const (
	PositionBefore DropPosition = "before"
	PositionAfter  DropPosition = "after"
	PositionInto   DropPosition = "into"
)

// ItemKind discriminates what a reference points at.
type ItemKind string

const (
	ItemPage    ItemKind = "page"
	ItemGroup   ItemKind = "group"
	ItemSection ItemKind = "section"
)

// ItemRef names a dragged item or drop target.
type ItemRef struct {
	Kind    ItemKind     `json:"kind"`
	Page    id.PageID    `json:"page,omitempty"`
	Group   id.GroupID   `json:"group,omitempty"`
	Section id.SectionID `json:"section,omitempty"`
}

// DragEvent is one completed gesture.
type DragEvent struct {
	Dragged  ItemRef      `json:"dragged"`
	Target   ItemRef      `json:"target"`
	Position DropPosition `json:"position"`
}

// GroupLayout is the reducer's view of one group: identity, binding
// presence, and page order. Bound feeds the cleanup rule only.
type GroupLayout struct {
	ID    id.GroupID
	Bound bool
	Pages []id.PageID
}

// SectionLayout is one section's groups in rank order.
type SectionLayout struct {
	ID     id.SectionID
	Groups []GroupLayout
}

// Layout is the full board the gesture operates on.
type Layout struct {
	Sections []SectionLayout
}

// CommandKind tags the store mutation a gesture resolved to.
type CommandKind string

const (
	CommandNone          CommandKind = "none"
	CommandMovePage      CommandKind = "move_page"
	CommandReorderGroups CommandKind = "reorder_groups"
)

// CleanupKind says what happens to a group the gesture left empty.
type CleanupKind string

const (
	// CleanupNone: no group was emptied.
	CleanupNone CleanupKind = "none"
	// CleanupAutoDelete: the emptied group has no bindings and is deleted
	// after the move completes.
	CleanupAutoDelete CleanupKind = "auto_delete"
	// CleanupDeferred: the emptied group is bound; deletion requires the
	// confirmation gate. A bound group is never auto-deleted.
	CleanupDeferred CleanupKind = "deferred"
)

// Command is the store mutation the gesture resolved to. MovePage fields are
// set for CommandMovePage, Section/OrderedGroups for CommandReorderGroups.
type Command struct {
	Kind CommandKind

	PageID      id.PageID
	FromGroup   id.GroupID
	ToGroup     id.GroupID
	TargetIndex int

	Section       id.SectionID
	OrderedGroups []id.GroupID

	Cleanup      CleanupKind
	CleanupGroup id.GroupID
}

// Reduce resolves a drag event against the current layout. On error the
// returned layout is the input unchanged and the command is CommandNone.
func Reduce(layout Layout, ev DragEvent) (Layout, Command, error) {
	none := Command{Kind: CommandNone, Cleanup: CleanupNone}
	switch ev.Dragged.Kind {
	case ItemPage:
		return reducePageDrag(layout, ev)
	case ItemGroup:
		return reduceGroupDrag(layout, ev)
	default:
		return layout, none, dErrors.New(dErrors.CodeInvalidInput, "dragged item must be a page or a group")
	}
}

func reducePageDrag(layout Layout, ev DragEvent) (Layout, Command, error) {
	none := Command{Kind: CommandNone, Cleanup: CleanupNone}
	pageID := ev.Dragged.Page
	fromSection, fromGroup := locatePage(layout, pageID)
	if fromGroup < 0 {
		return layout, none, dErrors.New(dErrors.CodeNotFound, "dragged page is not on the board")
	}

	var toSection, toGroup, targetIndex int
	switch ev.Target.Kind {
	case ItemPage:
		ts, tg := locatePage(layout, ev.Target.Page)
		if tg < 0 {
			return layout, none, dErrors.New(dErrors.CodeNotFound, "target page is not on the board")
		}
		if ev.Target.Page == pageID {
			return layout, none, nil
		}
		toSection, toGroup = ts, tg
		targetIndex = dropIndex(layout.Sections[ts].Groups[tg].Pages, pageID, ev.Target.Page, ev.Position)
	case ItemGroup:
		ts, tg := locateGroup(layout, ev.Target.Group)
		if tg < 0 {
			return layout, none, dErrors.New(dErrors.CodeNotFound, "target group is not on the board")
		}
		// Dropping on a group header appends to the end of that group.
		toSection, toGroup = ts, tg
		targetIndex = countExcluding(layout.Sections[ts].Groups[tg].Pages, pageID)
	default:
		return layout, none, dErrors.New(dErrors.CodeInvalidInput, "a page must be dropped on a page or a group")
	}

	next := cloneLayout(layout)
	src := &next.Sections[fromSection].Groups[fromGroup]
	src.Pages = removePage(src.Pages, pageID)
	dst := &next.Sections[toSection].Groups[toGroup]
	dst.Pages = insertPage(dst.Pages, pageID, targetIndex)

	cmd := Command{
		Kind:        CommandMovePage,
		PageID:      pageID,
		FromGroup:   layout.Sections[fromSection].Groups[fromGroup].ID,
		ToGroup:     dst.ID,
		TargetIndex: targetIndex,
		Cleanup:     CleanupNone,
	}

	// A cross-group move can leave the source empty. Unbound groups are
	// cleaned up after the move; bound groups stay (deletion goes through
	// the gate).
	if cmd.FromGroup != cmd.ToGroup && len(src.Pages) == 0 {
		cmd.CleanupGroup = src.ID
		if src.Bound {
			cmd.Cleanup = CleanupDeferred
		} else {
			cmd.Cleanup = CleanupAutoDelete
			next.Sections[fromSection].Groups = removeGroup(next.Sections[fromSection].Groups, src.ID)
		}
	}
	return next, cmd, nil
}

func reduceGroupDrag(layout Layout, ev DragEvent) (Layout, Command, error) {
	none := Command{Kind: CommandNone, Cleanup: CleanupNone}
	groupID := ev.Dragged.Group
	fromSection, fromIdx := locateGroup(layout, groupID)
	if fromIdx < 0 {
		return layout, none, dErrors.New(dErrors.CodeNotFound, "dragged group is not on the board")
	}

	var toSection, targetIdx int
	switch ev.Target.Kind {
	case ItemGroup:
		ts, ti := locateGroup(layout, ev.Target.Group)
		if ti < 0 {
			return layout, none, dErrors.New(dErrors.CodeNotFound, "target group is not on the board")
		}
		if ev.Target.Group == groupID {
			return layout, none, nil
		}
		toSection, targetIdx = ts, ti
	case ItemSection:
		ts := locateSection(layout, ev.Target.Section)
		if ts < 0 {
			return layout, none, dErrors.New(dErrors.CodeNotFound, "target section is not on the board")
		}
		toSection = ts
		targetIdx = len(layout.Sections[ts].Groups)
	default:
		return layout, none, dErrors.New(dErrors.CodeInvalidInput, "a group must be dropped on a group or a section")
	}

	// Categories are section-scoped; a group never crosses sections.
	if toSection != fromSection {
		return layout, none, dErrors.New(dErrors.CodeCrossSectionMove, "groups cannot move between sections")
	}

	section := layout.Sections[fromSection]
	reordered := reorderGroupIDs(section.Groups, groupID, ev.Target, targetIdx, ev.Position)

	next := cloneLayout(layout)
	ordered := make([]GroupLayout, 0, len(section.Groups))
	byID := make(map[id.GroupID]GroupLayout, len(section.Groups))
	for _, g := range next.Sections[fromSection].Groups {
		byID[g.ID] = g
	}
	for _, gid := range reordered {
		ordered = append(ordered, byID[gid])
	}
	next.Sections[fromSection].Groups = ordered

	return next, Command{
		Kind:          CommandReorderGroups,
		Section:       section.ID,
		OrderedGroups: reordered,
		Cleanup:       CleanupNone,
	}, nil
}

// dropIndex computes the insertion index for a page drop, in coordinates of
// the target list after the dragged page is removed from it. Position into
// resolves as after the target, so a tie lands after the last existing child.
func dropIndex(pages []id.PageID, dragged, target id.PageID, pos DropPosition) int {
	idx := 0
	for _, pid := range pages {
		if pid == dragged {
			continue
		}
		if pid == target {
			break
		}
		idx++
	}
	if pos == PositionBefore {
		return idx
	}
	return idx + 1
}

func reorderGroupIDs(groups []GroupLayout, dragged id.GroupID, target ItemRef, targetIdx int, pos DropPosition) []id.GroupID {
	rest := make([]id.GroupID, 0, len(groups))
	for _, g := range groups {
		if g.ID != dragged {
			rest = append(rest, g.ID)
		}
	}
	insertAt := len(rest)
	if target.Kind == ItemGroup {
		for i, gid := range rest {
			if gid == target.Group {
				insertAt = i
				if pos != PositionBefore {
					insertAt = i + 1
				}
				break
			}
		}
	}
	out := make([]id.GroupID, 0, len(rest)+1)
	out = append(out, rest[:insertAt]...)
	out = append(out, dragged)
	out = append(out, rest[insertAt:]...)
	return out
}

func locatePage(layout Layout, pageID id.PageID) (sectionIdx, groupIdx int) {
	for si, section := range layout.Sections {
		for gi, group := range section.Groups {
			for _, pid := range group.Pages {
				if pid == pageID {
					return si, gi
				}
			}
		}
	}
	return -1, -1
}

func locateGroup(layout Layout, groupID id.GroupID) (sectionIdx, groupIdx int) {
	for si, section := range layout.Sections {
		for gi, group := range section.Groups {
			if group.ID == groupID {
				return si, gi
			}
		}
	}
	return -1, -1
}

func locateSection(layout Layout, sectionID id.SectionID) int {
	for si, section := range layout.Sections {
		if section.ID == sectionID {
			return si
		}
	}
	return -1
}

func countExcluding(pages []id.PageID, exclude id.PageID) int {
	n := 0
	for _, pid := range pages {
		if pid != exclude {
			n++
		}
	}
	return n
}

func removePage(pages []id.PageID, pageID id.PageID) []id.PageID {
	out := make([]id.PageID, 0, len(pages))
	for _, pid := range pages {
		if pid != pageID {
			out = append(out, pid)
		}
	}
	return out
}

func insertPage(pages []id.PageID, pageID id.PageID, at int) []id.PageID {
	if at < 0 {
		at = 0
	}
	if at > len(pages) {
		at = len(pages)
	}
	out := make([]id.PageID, 0, len(pages)+1)
	out = append(out, pages[:at]...)
	out = append(out, pageID)
	out = append(out, pages[at:]...)
	return out
}

func removeGroup(groups []GroupLayout, groupID id.GroupID) []GroupLayout {
	out := make([]GroupLayout, 0, len(groups))
	for _, g := range groups {
		if g.ID != groupID {
			out = append(out, g)
		}
	}
	return out
}

func cloneLayout(layout Layout) Layout {
	next := Layout{Sections: make([]SectionLayout, len(layout.Sections))}
	for si, section := range layout.Sections {
		cp := SectionLayout{ID: section.ID, Groups: make([]GroupLayout, len(section.Groups))}
		for gi, group := range section.Groups {
			cp.Groups[gi] = GroupLayout{
				ID:    group.ID,
				Bound: group.Bound,
				Pages: append([]id.PageID(nil), group.Pages...),
			}
		}
		next.Sections[si] = cp
	}
	return next
}
