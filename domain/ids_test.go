package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSet(t *testing.T) {
	s := NewIDSet[LineItemID]("b", "a", "b", "")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []LineItemID{"a", "b"}, s.Sorted())

	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("c"))
	assert.True(t, s.Contains("c"))

	var zero LineItemSet
	assert.True(t, zero.Empty())
	assert.True(t, zero.Add("x"))

	other := NewIDSet[LineItemID]("c", "d")
	s.Union(other)
	assert.True(t, s.Equal(NewIDSet[LineItemID]("a", "b", "c", "d")))
	assert.False(t, s.Equal(other))
}

func TestIDSet_Chunk(t *testing.T) {
	ids := make([]LineItemID, 0, 250)
	for i := 0; i < 250; i++ {
		ids = append(ids, LineItemID(string(rune('a'+i%26))+string(rune('a'+i/26))))
	}
	s := NewIDSet(ids...)

	chunks := s.Chunk(100)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)

	assert.Len(t, s.Chunk(0), 1)
	assert.Nil(t, NewIDSet[LineItemID]().Chunk(100))
}
