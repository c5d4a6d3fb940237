package trees

import (
	"io/fs"
	"path/filepath"

	"github.com/armon/go-radix"
)

// FileRef identifies a regular file found during a scan. Two refs are the
// same file when their paths are equal; size and mode are carried along so
// later passes do not need to stat again.
type FileRef struct {
	Path string
	Size int64
	Mode fs.FileMode
}

// NewFileRef builds a ref from a path and its FileInfo.
func NewFileRef(path string, info fs.FileInfo) FileRef {
	return FileRef{
		Path: filepath.Clean(path),
		Size: info.Size(),
		Mode: info.Mode(),
	}
}

// FileSet is a set of FileRef unique by path. It is backed by a patricia tree
// so iteration is always in lexicographic path order, which keeps reports
// stable across runs. A FileSet is not safe for concurrent mutation; each
// scan unit owns its sets until it hands them back.
type FileSet struct {
	tree *radix.Tree
}

// NewFileSet returns a set holding refs.
func NewFileSet(refs ...FileRef) *FileSet {
	s := &FileSet{tree: radix.New()}
	for _, ref := range refs {
		s.Add(ref)
	}
	return s
}

func (s *FileSet) init() {
	if s.tree == nil {
		s.tree = radix.New()
	}
}

// Add inserts ref and reports whether it was new. A path already present
// keeps its first ref.
func (s *FileSet) Add(ref FileRef) bool {
	s.init()
	ref.Path = filepath.Clean(ref.Path)
	if _, ok := s.tree.Get(ref.Path); ok {
		return false
	}
	s.tree.Insert(ref.Path, ref)
	return true
}

// Union adds every member of other to s.
func (s *FileSet) Union(other *FileSet) {
	if other == nil || other.tree == nil {
		return
	}
	other.tree.Walk(func(_ string, v interface{}) bool {
		s.Add(v.(FileRef))
		return false
	})
}

// Contains reports whether path is a member.
func (s *FileSet) Contains(path string) bool {
	if s == nil || s.tree == nil {
		return false
	}
	_, ok := s.tree.Get(filepath.Clean(path))
	return ok
}

// Len returns the number of members.
func (s *FileSet) Len() int {
	if s == nil || s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Walk visits members in path order until fn returns false.
func (s *FileSet) Walk(fn func(FileRef) bool) {
	if s == nil || s.tree == nil {
		return
	}
	s.tree.Walk(func(_ string, v interface{}) bool {
		return !fn(v.(FileRef))
	})
}

// Refs returns the members in path order.
func (s *FileSet) Refs() []FileRef {
	refs := make([]FileRef, 0, s.Len())
	s.Walk(func(ref FileRef) bool {
		refs = append(refs, ref)
		return true
	})
	return refs
}

// Paths returns the member paths in lexicographic order.
func (s *FileSet) Paths() []string {
	paths := make([]string, 0, s.Len())
	s.Walk(func(ref FileRef) bool {
		paths = append(paths, ref.Path)
		return true
	})
	return paths
}

// Clone returns an independent copy of s.
func (s *FileSet) Clone() *FileSet {
	c := NewFileSet()
	c.Union(s)
	return c
}

// Equal reports whether s and other hold the same paths.
func (s *FileSet) Equal(other *FileSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	equal := true
	s.Walk(func(ref FileRef) bool {
		equal = other.Contains(ref.Path)
		return equal
	})
	return equal
}
