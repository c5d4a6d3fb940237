package trees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(path string, size int64) FileRef {
	return FileRef{Path: path, Size: size}
}

func TestFileSetAddIsUniqueByPath(t *testing.T) {
	s := NewFileSet()

	assert.True(t, s.Add(ref("/a/b.txt", 10)))
	assert.False(t, s.Add(ref("/a/b.txt", 99)))
	assert.False(t, s.Add(ref("/a/./b.txt", 5)), "cleaned paths collide")
	assert.Equal(t, 1, s.Len())

	refs := s.Refs()
	require.Len(t, refs, 1)
	assert.Equal(t, int64(10), refs[0].Size, "first ref wins")
}

func TestFileSetIteratesInPathOrder(t *testing.T) {
	s := NewFileSet(ref("/z", 1), ref("/a/2", 1), ref("/a/1", 1), ref("/m", 1))
	assert.Equal(t, []string{"/a/1", "/a/2", "/m", "/z"}, s.Paths())
}

func TestFileSetUnionIsCommutativeAndIdempotent(t *testing.T) {
	a := NewFileSet(ref("/1", 1), ref("/2", 1))
	b := NewFileSet(ref("/2", 1), ref("/3", 1))

	ab := a.Clone()
	ab.Union(b)
	ba := b.Clone()
	ba.Union(a)
	assert.True(t, ab.Equal(ba))
	assert.Equal(t, []string{"/1", "/2", "/3"}, ab.Paths())

	again := ab.Clone()
	again.Union(ab)
	assert.True(t, again.Equal(ab))

	// inputs untouched
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestFileSetZeroValueAndNil(t *testing.T) {
	var zero FileSet
	assert.Equal(t, 0, zero.Len())
	assert.False(t, zero.Contains("/x"))
	assert.True(t, zero.Add(ref("/x", 1)))
	assert.True(t, zero.Contains("/x"))

	var nilSet *FileSet
	assert.Equal(t, 0, nilSet.Len())
	assert.Empty(t, nilSet.Paths())

	s := NewFileSet()
	s.Union(nil)
	assert.Equal(t, 0, s.Len())
}

func TestFileSetWalkStopsEarly(t *testing.T) {
	s := NewFileSet(ref("/1", 1), ref("/2", 1), ref("/3", 1))

	var seen []string
	s.Walk(func(r FileRef) bool {
		seen = append(seen, r.Path)
		return len(seen) < 2
	})
	assert.Equal(t, []string{"/1", "/2"}, seen)
}

func TestFileSetEqual(t *testing.T) {
	a := NewFileSet(ref("/1", 1), ref("/2", 1))
	b := NewFileSet(ref("/2", 7), ref("/1", 8))
	c := NewFileSet(ref("/1", 1), ref("/3", 1))

	assert.True(t, a.Equal(b), "equality is by path")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewFileSet(ref("/1", 1))))
}
