// Package selection implements the selection-state model shared by event
// types and groups: which event types a client has picked, which groups it
// subscribes to, and how the two interact. State is an explicit value with a
// defined update API; nothing in here is shared between instances.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calsift/calsift/internal/catalog"
)

// FilterMode decides how a selection is applied on export.
type FilterMode string

const (
	// ModeInclude exports only the selected event types.
	ModeInclude FilterMode = "include"
	// ModeExclude exports everything except the selected event types.
	ModeExclude FilterMode = "exclude"
)

// Valid reports whether m is a known filter mode.
func (m FilterMode) Valid() bool {
	return m == ModeInclude || m == ModeExclude
}

// Toggle flips between include and exclude.
func (m FilterMode) Toggle() FilterMode {
	if m == ModeInclude {
		return ModeExclude
	}
	return ModeInclude
}

// State holds one client's selection: selected event-type names, subscribed
// group IDs, expanded IDs (presentation only), the search term, and the
// filter mode. The zero value is not usable; call New.
type State struct {
	selected   map[string]struct{}
	subscribed map[int64]struct{}
	expanded   map[string]struct{}
	searchTerm string
	mode       FilterMode
}

// New returns an empty selection in include mode.
func New() *State {
	return &State{
		selected:   make(map[string]struct{}),
		subscribed: make(map[int64]struct{}),
		expanded:   make(map[string]struct{}),
		mode:       ModeInclude,
	}
}

// Restore rebuilds a selection from persisted parts. Unknown modes fall back
// to include.
func Restore(selected []string, subscribed []int64, mode FilterMode, searchTerm string) *State {
	s := New()
	for _, name := range selected {
		if name != "" {
			s.selected[name] = struct{}{}
		}
	}
	for _, id := range subscribed {
		s.subscribed[id] = struct{}{}
	}
	if mode.Valid() {
		s.mode = mode
	}
	s.searchTerm = searchTerm
	return s
}

// IsSelected reports whether an event type is explicitly selected.
func (s *State) IsSelected(name string) bool {
	_, ok := s.selected[name]
	return ok
}

// SelectedNames returns the explicitly selected names in sorted order.
func (s *State) SelectedNames() []string {
	names := make([]string, 0, len(s.selected))
	for name := range s.selected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectedCount returns the number of explicitly selected event types.
func (s *State) SelectedCount() int {
	return len(s.selected)
}

// SubscribedIDs returns the subscribed group IDs in ascending order.
func (s *State) SubscribedIDs() []int64 {
	ids := make([]int64, 0, len(s.subscribed))
	for id := range s.subscribed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSubscribed reports whether a group is subscribed.
func (s *State) IsSubscribed(groupID int64) bool {
	_, ok := s.subscribed[groupID]
	return ok
}

// Mode returns the current filter mode.
func (s *State) Mode() FilterMode {
	return s.mode
}

// SwitchMode toggles between include and exclude and returns the new mode.
func (s *State) SwitchMode() FilterMode {
	s.mode = s.mode.Toggle()
	return s.mode
}

// SearchTerm returns the current search term.
func (s *State) SearchTerm() string {
	return s.searchTerm
}

// SetSearchTerm records the search term. Searching never touches the
// selected or subscribed sets.
func (s *State) SetSearchTerm(term string) {
	s.searchTerm = strings.TrimSpace(term)
}

// IsExpanded reports whether an item is expanded.
func (s *State) IsExpanded(id string) bool {
	_, ok := s.expanded[id]
	return ok
}

// ToggleExpansion flips an item's expanded flag and reports whether it is now
// expanded. Expansion drives on-demand event loading only.
func (s *State) ToggleExpansion(id string) bool {
	if _, ok := s.expanded[id]; ok {
		delete(s.expanded, id)
		return false
	}
	s.expanded[id] = struct{}{}
	return true
}

// ToggleEventType flips membership of name in the selected set and reports
// whether it is now selected. When the flip deselects the last selected
// member of a subscribed group, that group is unsubscribed: a subscription
// whose members are all gone no longer means anything.
func (s *State) ToggleEventType(name string, groups []catalog.Group) bool {
	if _, ok := s.selected[name]; ok {
		delete(s.selected, name)
		for _, g := range groups {
			if !s.IsSubscribed(g.ID) || !g.Contains(name) {
				continue
			}
			if s.selectedMemberCount(g) == 0 {
				delete(s.subscribed, g.ID)
			}
		}
		return false
	}
	s.selected[name] = struct{}{}
	return true
}

// ToggleGroupSubscription flips a group's subscription and reports whether it
// is now subscribed. Subscribing selects all current members; future members
// are picked up through EffectiveSelected because membership is re-derived
// from the feed. Unsubscribing clears the group's member selections.
func (s *State) ToggleGroupSubscription(g catalog.Group) bool {
	if s.IsSubscribed(g.ID) {
		delete(s.subscribed, g.ID)
		for name := range g.EventTypes {
			delete(s.selected, name)
		}
		return false
	}
	s.subscribed[g.ID] = struct{}{}
	for name := range g.EventTypes {
		s.selected[name] = struct{}{}
	}
	return true
}

// SelectAll selects every given event-type name.
func (s *State) SelectAll(names []string) {
	for _, name := range names {
		if name != "" {
			s.selected[name] = struct{}{}
		}
	}
}

// ClearAll empties the selected set and drops all group subscriptions.
func (s *State) ClearAll() {
	s.selected = make(map[string]struct{})
	s.subscribed = make(map[int64]struct{})
}

// GroupFullySelected reports whether every member event type of the group is
// selected. Empty groups are never fully selected.
func (s *State) GroupFullySelected(g catalog.Group) bool {
	if len(g.EventTypes) == 0 {
		return false
	}
	return s.selectedMemberCount(g) == len(g.EventTypes)
}

// GroupPartiallySelected reports whether some but not all member event types
// of the group are selected.
func (s *State) GroupPartiallySelected(g catalog.Group) bool {
	n := s.selectedMemberCount(g)
	return n > 0 && n < len(g.EventTypes)
}

func (s *State) selectedMemberCount(g catalog.Group) int {
	n := 0
	for name := range g.EventTypes {
		if _, ok := s.selected[name]; ok {
			n++
		}
	}
	return n
}

// EffectiveSelected returns the union of the explicit selections and the
// members of all subscribed groups. This is the set the filter mode is
// applied against.
func (s *State) EffectiveSelected(groups []catalog.Group) map[string]struct{} {
	out := make(map[string]struct{}, len(s.selected))
	for name := range s.selected {
		out[name] = struct{}{}
	}
	for _, g := range groups {
		if !s.IsSubscribed(g.ID) {
			continue
		}
		for name := range g.EventTypes {
			out[name] = struct{}{}
		}
	}
	return out
}

// Includes reports whether an event type passes the filter: in include mode
// it must be effectively selected, in exclude mode it must not be.
func (s *State) Includes(name string, groups []catalog.Group) bool {
	_, selected := s.EffectiveSelected(groups)[name]
	if s.mode == ModeExclude {
		return !selected
	}
	return selected
}

// Summary renders the selection-summary text shown in control bars.
func (s *State) Summary(total int) string {
	n := len(s.selected)
	switch {
	case total == 0:
		return "No event types"
	case n == 0:
		return fmt.Sprintf("None of %d selected", total)
	case n >= total:
		return fmt.Sprintf("All %d selected", total)
	default:
		return fmt.Sprintf("%d of %d selected", n, total)
	}
}

// FilterEventTypes narrows event types to those whose name contains term,
// case-insensitively. An empty term returns the input unchanged. The
// underlying selection is never consulted or modified.
func FilterEventTypes(types []catalog.EventType, term string) []catalog.EventType {
	term = strings.TrimSpace(term)
	if term == "" {
		return types
	}
	needle := strings.ToLower(term)
	var out []catalog.EventType
	for _, t := range types {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			out = append(out, t)
		}
	}
	return out
}

// FilterGroups narrows groups the same way FilterEventTypes narrows event
// types: a group matches when its name or any member name contains term.
func FilterGroups(groups []catalog.Group, term string) []catalog.Group {
	term = strings.TrimSpace(term)
	if term == "" {
		return groups
	}
	needle := strings.ToLower(term)
	var out []catalog.Group
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Name), needle) {
			out = append(out, g)
			continue
		}
		for name := range g.EventTypes {
			if strings.Contains(strings.ToLower(name), needle) {
				out = append(out, g)
				break
			}
		}
	}
	return out
}
