package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkItem_Field(t *testing.T) {
	wi := &WorkItem{
		ID:   3,
		Type: "Task",
		Fields: map[string]Value{
			FieldTitle: String("write docs"),
			"Custom.X": Null{},
		},
	}

	v, ok := wi.Field(FieldID)
	assert.True(t, ok)
	assert.Equal(t, Int(3), v)

	v, ok = wi.Field(FieldWorkItemType)
	assert.True(t, ok)
	assert.Equal(t, String("Task"), v)

	v, ok = wi.Field(FieldTitle)
	assert.True(t, ok)
	assert.Equal(t, String("write docs"), v)

	_, ok = wi.Field("Custom.X")
	assert.False(t, ok)
	_, ok = wi.Field("Custom.Missing")
	assert.False(t, ok)
}

func TestRelatedIDs(t *testing.T) {
	links := []WorkItemLink{
		{SourceID: 0, TargetID: 3, LinkType: LinkHierarchyForward},
		{SourceID: 3, TargetID: 1, LinkType: LinkHierarchyForward},
		{SourceID: 2, TargetID: 3, LinkType: LinkHierarchyReverse}, // 3 → 2
		{SourceID: 0, TargetID: 3, LinkType: LinkHierarchyForward}, // duplicate
		{SourceID: 9, TargetID: 3, LinkType: LinkRelated},
	}

	assert.Equal(t, []int64{1, 2}, RelatedIDs(3, EndChildren, links))
	assert.Equal(t, []int64{0}, RelatedIDs(3, EndParents, links))
	assert.Equal(t, []int64{9}, RelatedIDs(3, EndRelated, links))
	assert.Equal(t, []int64{}, RelatedIDs(1, EndChildren, links))
}

func TestLinkEnd_LinkTypeName(t *testing.T) {
	assert.Equal(t, LinkHierarchyForward, EndChildren.LinkTypeName())
	assert.Equal(t, LinkHierarchyReverse, EndParents.LinkTypeName())
	assert.Equal(t, LinkRelated, EndRelated.LinkTypeName())
}
