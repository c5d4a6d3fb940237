package options

import (
	internal "github.com/ZanzyTHEbar/dupfs/dupfs"
)

// ErrorPolicy decides what a scan does with unreadable files and subtrees.
// One policy applies to the whole run, scanning and verification alike.
type ErrorPolicy string

const (
	// ErrorPolicyAbort fails the scan once every unit has finished.
	ErrorPolicyAbort ErrorPolicy = "abort"
	// ErrorPolicySkip records the offending path and continues.
	ErrorPolicySkip ErrorPolicy = "skip"
)

// Valid reports whether p is a known policy.
func (p ErrorPolicy) Valid() bool {
	return p == ErrorPolicyAbort || p == ErrorPolicySkip
}

// ScanOptions configures a duplicate scan
type ScanOptions struct {
	Path             string      // Starting directory
	MaxConcurrency   int         // Maximum units running at once (>= 1)
	IgnoreExtensions []string    // Extensions excluded before hashing, e.g. ".tmp"
	FullVerification bool        // Re-hash candidates over their whole content
	PrefixLimit      int64       // Bytes hashed in prefix mode
	BufferSize       int         // Streaming read chunk size
	Algorithm        string      // Digest name, see hasher.Algorithms
	ErrorPolicy      ErrorPolicy // abort or skip
	IgnoreFile       string      // gitignore-style file looked up at the root; empty disables
}

// DefaultScanOptions returns sensible defaults for a scan of path
func DefaultScanOptions(path string) ScanOptions {
	return ScanOptions{
		Path:             path,
		MaxConcurrency:   internal.DefaultThreads,
		IgnoreExtensions: nil,
		FullVerification: false,
		PrefixLimit:      internal.DefaultPrefixLimit,
		BufferSize:       internal.DefaultBufferSize,
		Algorithm:        internal.DefaultAlgorithm,
		ErrorPolicy:      ErrorPolicy(internal.DefaultErrorPolicy),
		IgnoreFile:       internal.DefaultIgnoreFile,
	}
}
