package watch

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ignored reports whether path must never be tracked: the root itself,
// anything below a dot-prefixed segment and files without an extension.
func ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return true
	}

	if lo.SomeBy(strings.Split(rel, string(filepath.Separator)), hidden) {
		return true
	}
	return filepath.Ext(path) == ""
}

func hidden(segment string) bool {
	return strings.HasPrefix(segment, ".")
}
