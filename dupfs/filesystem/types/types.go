package types

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"

	"github.com/google/uuid"
)

// ContentHash is an immutable digest of a file's bytes (or of a prefix of
// them). It is string-backed so it can key a map.
type ContentHash string

// NewContentHash copies sum into a ContentHash.
func NewContentHash(sum []byte) ContentHash {
	return ContentHash(sum)
}

// Len returns the digest size in bytes.
func (h ContentHash) Len() int {
	return len(h)
}

// Hex renders the digest as fixed-length uppercase hexadecimal.
func (h ContentHash) Hex() string {
	return strings.ToUpper(hex.EncodeToString([]byte(h)))
}

func (h ContentHash) String() string {
	return h.Hex()
}

// DuplicateMap maps a content hash to every file observed with that hash.
type DuplicateMap map[ContentHash]*trees.FileSet

// Insert adds ref under hash, creating the bucket when needed.
func (m DuplicateMap) Insert(hash ContentHash, ref trees.FileRef) {
	set, ok := m[hash]
	if !ok {
		set = trees.NewFileSet()
		m[hash] = set
	}
	set.Add(ref)
}

// FileCount returns the number of files across all buckets.
func (m DuplicateMap) FileCount() int {
	total := 0
	for _, set := range m {
		total += set.Len()
	}
	return total
}

// SortedHashes returns the keys in ascending hex order.
func (m DuplicateMap) SortedHashes() []ContentHash {
	hashes := make([]ContentHash, 0, len(m))
	for hash := range m {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes
}

// Equal reports whether both maps have the same keys and the same path sets.
func (m DuplicateMap) Equal(other DuplicateMap) bool {
	if len(m) != len(other) {
		return false
	}
	for hash, set := range m {
		otherSet, ok := other[hash]
		if !ok || !set.Equal(otherSet) {
			return false
		}
	}
	return true
}

// Group is one reported set of identical files.
type Group struct {
	Hash  ContentHash     `json:"-"`
	HexID string          `json:"hash"`
	Size  int64           `json:"size"`
	Files []trees.FileRef `json:"files"`
}

// Paths returns the group's paths in order.
func (g Group) Paths() []string {
	paths := make([]string, len(g.Files))
	for i, ref := range g.Files {
		paths[i] = ref.Path
	}
	return paths
}

// Reclaimable returns the bytes held by every copy but the first. Prefix-only
// groups may mix sizes, so members are summed rather than multiplied.
func (g Group) Reclaimable() int64 {
	var total int64
	for i, ref := range g.Files {
		if i > 0 {
			total += ref.Size
		}
	}
	return total
}

// SkipRecord notes a path left out of the scan under the skip policy.
type SkipRecord struct {
	Path   string `json:"path"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// Report is the result handed to the output collaborator.
type Report struct {
	ScanID     uuid.UUID             `json:"scan_id"`
	Root       string                `json:"root"`
	Algorithm  string                `json:"algorithm"`
	FullCheck  bool                  `json:"full_check"`
	Duplicates DuplicateMap          `json:"-"`
	Skipped    []SkipRecord          `json:"skipped,omitempty"`
	Stats      common.MetricsSummary `json:"stats"`
	StartedAt  time.Time             `json:"started_at"`
	Duration   time.Duration         `json:"duration"`
}

// GroupCount returns the number of duplicate groups.
func (r *Report) GroupCount() int {
	return len(r.Duplicates)
}

// Groups returns the duplicate groups ordered by hash, paths ordered lexicographically.
func (r *Report) Groups() []Group {
	groups := make([]Group, 0, len(r.Duplicates))
	for _, hash := range r.Duplicates.SortedHashes() {
		refs := r.Duplicates[hash].Refs()
		var size int64
		if len(refs) > 0 {
			size = refs[0].Size
		}
		groups = append(groups, Group{
			Hash:  hash,
			HexID: hash.Hex(),
			Size:  size,
			Files: refs,
		})
	}
	return groups
}

// Reclaimable sums the bytes that duplicate copies occupy.
func (r *Report) Reclaimable() int64 {
	var total int64
	for _, g := range r.Groups() {
		total += g.Reclaimable()
	}
	return total
}
