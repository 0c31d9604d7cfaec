package ir

import "slices"

// Well-known field reference names.
const (
	FieldID           = "System.Id"
	FieldWorkItemType = "System.WorkItemType"
	FieldTitle        = "System.Title"
	FieldState        = "System.State"
	FieldAreaPath     = "System.AreaPath"
)

// Link type reference names.
const (
	LinkHierarchyForward = "System.LinkTypes.Hierarchy-Forward"
	LinkHierarchyReverse = "System.LinkTypes.Hierarchy-Reverse"
	LinkRelated          = "System.LinkTypes.Related"
)

// WorkItem is a single record returned by the store.
// Fields holds raw values keyed by field reference name.
type WorkItem struct {
	ID     int64
	Type   string
	Fields map[string]Value
}

// Field returns the value stored under ref. System.Id and
// System.WorkItemType are always available.
func (w *WorkItem) Field(ref string) (Value, bool) {
	switch ref {
	case FieldID:
		return Int(w.ID), true
	case FieldWorkItemType:
		return String(w.Type), true
	}
	v, ok := w.Fields[ref]
	if !ok || IsNull(v) {
		return Null{}, false
	}
	return v, true
}

// WorkItemLink is a directed, typed edge between two work items.
// Endpoints may reference items that are not part of a result set.
type WorkItemLink struct {
	SourceID int64
	TargetID int64
	LinkType string
}

// Canonical returns the link in its stored orientation. A reverse hierarchy
// link (child → parent) becomes the equivalent forward link (parent → child).
func (l WorkItemLink) Canonical() WorkItemLink {
	if l.LinkType == LinkHierarchyReverse {
		return WorkItemLink{SourceID: l.TargetID, TargetID: l.SourceID, LinkType: LinkHierarchyForward}
	}
	return l
}

// IsHierarchy reports whether the link is a parent/child link in either
// orientation.
func (l WorkItemLink) IsHierarchy() bool {
	return l.LinkType == LinkHierarchyForward || l.LinkType == LinkHierarchyReverse
}

// LinkEnd selects which related ids of an item a link traversal yields.
type LinkEnd int

const (
	// EndChildren yields the targets of forward hierarchy links sourced at the item.
	EndChildren LinkEnd = iota
	// EndParents yields the sources of forward hierarchy links targeting the item.
	EndParents
	// EndRelated yields the other endpoint of related links in either orientation.
	EndRelated
)

func (e LinkEnd) String() string {
	switch e {
	case EndChildren:
		return "children"
	case EndParents:
		return "parents"
	case EndRelated:
		return "related"
	}
	return "unknown"
}

// LinkTypeName returns the link type reference name used when querying the
// store for this end.
func (e LinkEnd) LinkTypeName() string {
	switch e {
	case EndChildren:
		return LinkHierarchyForward
	case EndParents:
		return LinkHierarchyReverse
	}
	return LinkRelated
}

// RelatedIDs returns the ids reachable from id over links through end,
// sorted ascending and deduplicated.
func RelatedIDs(id int64, end LinkEnd, links []WorkItemLink) []int64 {
	ids := []int64{}
	for _, raw := range links {
		l := raw.Canonical()
		switch end {
		case EndChildren:
			if l.LinkType == LinkHierarchyForward && l.SourceID == id {
				ids = append(ids, l.TargetID)
			}
		case EndParents:
			if l.LinkType == LinkHierarchyForward && l.TargetID == id {
				ids = append(ids, l.SourceID)
			}
		case EndRelated:
			if l.LinkType != LinkRelated {
				continue
			}
			if l.SourceID == id {
				ids = append(ids, l.TargetID)
			} else if l.TargetID == id {
				ids = append(ids, l.SourceID)
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
