// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect_SingleReplaces(t *testing.T) {
	s := Empty().
		Select(Target{EntityID: "a", AnnotationID: "ann-a", SpanID: "span-a"}, false).
		Select(Target{EntityID: "b", AnnotationID: "ann-b", SpanID: "span-b"}, false)

	assert.Equal(t, []string{"b"}, s.EntityIDs)
	assert.Equal(t, []string{"ann-b"}, s.AnnotationIDs)
	assert.Equal(t, []string{"span-b"}, s.AnnotationSpanIDs)
}

func TestSelect_MultiAppendsUnique(t *testing.T) {
	s := Empty().
		Select(Target{EntityID: "a", AnnotationID: "ann-a"}, true).
		Select(Target{EntityID: "b", AnnotationID: "ann-b"}, true).
		Select(Target{EntityID: "a", AnnotationID: "ann-a"}, true)

	assert.Equal(t, []string{"a", "b"}, s.EntityIDs)
	assert.Equal(t, []string{"ann-a", "ann-b"}, s.AnnotationIDs)
	assert.Empty(t, s.AnnotationSpanIDs)
}

func TestSelect_MultiselectOffAlwaysLengthOne(t *testing.T) {
	s := Empty()
	for _, id := range []string{"a", "b", "c", "b"} {
		s = s.Select(Target{EntityID: id}, true)
	}
	s = s.Select(Target{EntityID: "d"}, false)
	assert.Len(t, s.EntityIDs, 1)
}

func TestSelect_DoesNotMutateReceiver(t *testing.T) {
	s := Empty().Select(Target{EntityID: "a"}, true)
	_ = s.Select(Target{EntityID: "b"}, true)
	assert.Equal(t, []string{"a"}, s.EntityIDs)
}

func TestWithout(t *testing.T) {
	s := Empty().Select(Target{EntityID: "a", AnnotationID: "x"}, true).Select(Target{EntityID: "b"}, true)

	assert.True(t, s.Without("a").IsEmpty())
	assert.Empty(t, s.Without("a").AnnotationIDs)
	assert.Equal(t, []string{"a", "b"}, s.Without("c").EntityIDs)
}

func TestLast(t *testing.T) {
	_, ok := Empty().Last()
	assert.False(t, ok)

	last, ok := Empty().Select(Target{EntityID: "a"}, true).Select(Target{EntityID: "b"}, true).Last()
	assert.True(t, ok)
	assert.Equal(t, "b", last)
}
