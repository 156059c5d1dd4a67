package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound is returned when an operation names a group ID that is not in the tree
	ErrGroupNotFound = errors.New("test group not found")
	// ErrChildNotFound is returned when a child index is out of range for its group
	ErrChildNotFound = errors.New("test case not found")
)

// TestCase is a single selectable SCIM operation. StateName is the key the request builder maps
// to the outbound payload.
type TestCase struct {
	Name      string `json:"name"`
	StateName string `json:"stateName"`
	Checked   bool   `json:"checked"`
}

// TestGroup owns an ordered list of test cases for one SCIM endpoint
type TestGroup struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	Checked             bool       `json:"checked"`
	Expanded            bool       `json:"expanded"`
	AllChildrenSelected bool       `json:"allChildrenSelected"`
	Sub                 []TestCase `json:"sub"`
}

// CheckedCount returns the number of checked children
func (g TestGroup) CheckedCount() int {
	n := 0
	for _, c := range g.Sub {
		if c.Checked {
			n++
		}
	}
	return n
}

func (g TestGroup) clone() TestGroup {
	out := g
	out.Sub = make([]TestCase, len(g.Sub))
	copy(out.Sub, g.Sub)
	return out
}

// SelectionTree is an immutable two-level selection of test cases.
// Every operation returns a new tree; the receiver is never modified.
type SelectionTree struct {
	groups []TestGroup
	index  map[int]int // group ID -> position
}

// NewSelectionTree builds a tree from the given groups. Group IDs must be unique and every
// group must have at least one test case. Group flags are derived from the children so the
// tree starts out consistent.
func NewSelectionTree(groups []TestGroup) (SelectionTree, error) {
	t := SelectionTree{
		groups: make([]TestGroup, len(groups)),
		index:  make(map[int]int, len(groups)),
	}

	for i, g := range groups {
		if _, dup := t.index[g.ID]; dup {
			return SelectionTree{}, fmt.Errorf("duplicate test group id %d", g.ID)
		}
		if len(g.Sub) == 0 {
			return SelectionTree{}, fmt.Errorf("test group %d (%s) has no test cases", g.ID, g.Name)
		}

		ng := g.clone()
		count := ng.CheckedCount()
		ng.Checked = count > 0
		ng.AllChildrenSelected = count == len(ng.Sub)

		t.groups[i] = ng
		t.index[g.ID] = i
	}

	return t, nil
}

// Groups returns a deep copy of the groups in display order
func (t SelectionTree) Groups() []TestGroup {
	out := make([]TestGroup, len(t.groups))
	for i, g := range t.groups {
		out[i] = g.clone()
	}
	return out
}

// Group returns a copy of the group with the given ID
func (t SelectionTree) Group(id int) (TestGroup, bool) {
	i, ok := t.index[id]
	if !ok {
		return TestGroup{}, false
	}
	return t.groups[i].clone(), true
}

// Len returns the number of groups
func (t SelectionTree) Len() int {
	return len(t.groups)
}

// withGroup copies the tree, applies fn to a copy of one group and returns the new tree.
// Untouched groups share their Sub slices with the receiver; nothing ever writes to them.
func (t SelectionTree) withGroup(id int, fn func(g *TestGroup) error) (SelectionTree, error) {
	i, ok := t.index[id]
	if !ok {
		return t, fmt.Errorf("%w: %d", ErrGroupNotFound, id)
	}

	g := t.groups[i].clone()
	if err := fn(&g); err != nil {
		return t, err
	}

	groups := make([]TestGroup, len(t.groups))
	copy(groups, t.groups)
	groups[i] = g

	return SelectionTree{groups: groups, index: t.index}, nil
}

// ToggleGroup applies the group checkbox:
//   - unchecked: check every child, expand, mark all selected
//   - fully checked: uncheck every child, collapse
//   - partially checked: check the remaining children and expand, group stays checked
func (t SelectionTree) ToggleGroup(id int) (SelectionTree, error) {
	return t.withGroup(id, func(g *TestGroup) error {
		toggleGroup(g)
		return nil
	})
}

func toggleGroup(g *TestGroup) {
	switch {
	case !g.Checked:
		setChildren(g, true)
		g.Checked = true
		g.Expanded = true
		g.AllChildrenSelected = true
	case g.AllChildrenSelected:
		setChildren(g, false)
		g.Checked = false
		g.Expanded = false
		g.AllChildrenSelected = false
	default:
		setChildren(g, true)
		g.AllChildrenSelected = true
		g.Expanded = true
	}
}

func setChildren(g *TestGroup, checked bool) {
	for i := range g.Sub {
		g.Sub[i].Checked = checked
	}
}

// ToggleChild flips one test case and recomputes the group flags.
// The first checked child checks the group without touching expansion; unchecking the last
// child unchecks and collapses the group.
func (t SelectionTree) ToggleChild(id, childIndex int) (SelectionTree, error) {
	return t.withGroup(id, func(g *TestGroup) error {
		if childIndex < 0 || childIndex >= len(g.Sub) {
			return fmt.Errorf("%w: group %d index %d", ErrChildNotFound, id, childIndex)
		}

		before := g.CheckedCount()
		g.Sub[childIndex].Checked = !g.Sub[childIndex].Checked
		after := g.CheckedCount()

		switch {
		case before == 0 && after == 1:
			g.Checked = true
			g.AllChildrenSelected = after == len(g.Sub)
		case before == 1 && after == 0:
			g.Checked = false
			g.Expanded = false
			g.AllChildrenSelected = false
		default:
			g.Checked = after > 0
			g.AllChildrenSelected = after == len(g.Sub)
		}
		return nil
	})
}

// ToggleExpand flips only the expanded flag
func (t SelectionTree) ToggleExpand(id int) (SelectionTree, error) {
	return t.withGroup(id, func(g *TestGroup) error {
		g.Expanded = !g.Expanded
		return nil
	})
}

// SelectAll applies ToggleGroup to every group in display order
func (t SelectionTree) SelectAll() SelectionTree {
	groups := make([]TestGroup, len(t.groups))
	for i, g := range t.groups {
		ng := g.clone()
		toggleGroup(&ng)
		groups[i] = ng
	}
	return SelectionTree{groups: groups, index: t.index}
}

// AllSelected reports whether every group is fully checked. It is derived from the tree and
// drives the "select all" indicator.
func (t SelectionTree) AllSelected() bool {
	if len(t.groups) == 0 {
		return false
	}
	for _, g := range t.groups {
		if !g.AllChildrenSelected {
			return false
		}
	}
	return true
}

// CheckedCount returns the number of checked test cases across all groups
func (t SelectionTree) CheckedCount() int {
	n := 0
	for _, g := range t.groups {
		n += g.CheckedCount()
	}
	return n
}

// TotalCount returns the number of test cases across all groups
func (t SelectionTree) TotalCount() int {
	n := 0
	for _, g := range t.groups {
		n += len(g.Sub)
	}
	return n
}

// CheckedStateNames returns the state names of checked test cases in display order
func (t SelectionTree) CheckedStateNames() []string {
	names := []string{}
	for _, g := range t.groups {
		for _, c := range g.Sub {
			if c.Checked {
				names = append(names, c.StateName)
			}
		}
	}
	return names
}

// Consistent reports whether every group satisfies checked == any(children) and
// allChildrenSelected == all(children)
func (t SelectionTree) Consistent() bool {
	for _, g := range t.groups {
		count := g.CheckedCount()
		if g.Checked != (count > 0) || g.AllChildrenSelected != (count == len(g.Sub)) {
			return false
		}
	}
	return true
}

type selectionTreeJSON struct {
	Groups       []TestGroup `json:"groups"`
	AllSelected  bool        `json:"allSelected"`
	CheckedCount int         `json:"checkedCount"`
	TotalCount   int         `json:"totalCount"`
}

// MarshalJSON renders the tree with its derived counters
func (t SelectionTree) MarshalJSON() ([]byte, error) {
	groups := t.groups
	if groups == nil {
		groups = []TestGroup{}
	}
	return json.Marshal(selectionTreeJSON{
		Groups:       groups,
		AllSelected:  t.AllSelected(),
		CheckedCount: t.CheckedCount(),
		TotalCount:   t.TotalCount(),
	})
}
