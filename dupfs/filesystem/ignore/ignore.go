package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides which paths a scan never looks at: files whose extension is
// in the ignore set, and paths matched by the optional gitignore-style file
// found at the scan root.
type Matcher struct {
	root       string
	extensions map[string]struct{}
	patterns   *gitignore.GitIgnore
	pathUtils  *common.PathUtils
}

// NewMatcher builds a matcher for root. Extensions are matched exactly against
// filepath.Ext; a missing leading dot is added. ignoreFile is resolved against
// root and may be absent.
func NewMatcher(root string, extensions []string, ignoreFile string) (*Matcher, error) {
	m := &Matcher{
		root:       filepath.Clean(root),
		extensions: make(map[string]struct{}, len(extensions)),
		pathUtils:  common.NewPathUtils(),
	}

	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.extensions[ext] = struct{}{}
	}

	if ignoreFile == "" {
		return m, nil
	}

	ignorePath := ignoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(m.root, ignoreFile)
	}

	if _, err := os.Stat(ignorePath); err == nil {
		patterns, err := gitignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("error reading ignore file %s: %w", ignorePath, err)
		}
		m.patterns = patterns
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error checking for ignore file %s: %w", ignorePath, err)
	}

	return m, nil
}

// NewExtensionMatcher builds a matcher that only checks extensions.
func NewExtensionMatcher(extensions ...string) *Matcher {
	m, _ := NewMatcher("", extensions, "")
	return m
}

// IgnoredExtension reports whether path's extension is in the ignore set.
func (m *Matcher) IgnoredExtension(path string) bool {
	if m == nil || len(m.extensions) == 0 {
		return false
	}
	_, ok := m.extensions[filepath.Ext(path)]
	return ok
}

// IgnoredFile reports whether a regular file at path is excluded.
func (m *Matcher) IgnoredFile(path string) bool {
	return m.IgnoredExtension(path) || m.matchesPattern(path, false)
}

// IgnoredDir reports whether the directory at path should be pruned.
func (m *Matcher) IgnoredDir(path string) bool {
	return m.matchesPattern(path, true)
}

func (m *Matcher) matchesPattern(path string, isDir bool) bool {
	if m == nil || m.patterns == nil {
		return false
	}
	rel, ok := m.pathUtils.RelativeSlashPath(m.root, path)
	if !ok {
		return false
	}
	if m.patterns.MatchesPath(rel) {
		return true
	}
	// "dir/" patterns only match with the trailing slash
	return isDir && m.patterns.MatchesPath(rel+"/")
}

// HasPatterns reports whether an ignore file was loaded.
func (m *Matcher) HasPatterns() bool {
	return m != nil && m.patterns != nil
}

// Extensions returns the ignored extensions in order.
func (m *Matcher) Extensions() []string {
	exts := make([]string, 0, len(m.extensions))
	for ext := range m.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
