package service

import (
	"fmt"
	"path/filepath"
	"strings"
)

// suggestTitle returns title itself when free, otherwise the first
// "base (n)ext" variant not present in taken. Deterministic: the same
// inputs always yield the same suggestion.
func suggestTitle(title string, taken []string) string {
	set := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		set[t] = struct{}{}
	}

	if _, ok := set[title]; !ok {
		return title
	}

	base, ext := splitTitle(title)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, ok := set[candidate]; !ok {
			return candidate
		}
	}
}

// splitTitle splits "report.pdf" into ("report", ".pdf"). Titles
// without an extension, and dotfiles, keep the whole string as base.
func splitTitle(title string) (base, ext string) {
	ext = filepath.Ext(title)
	if ext == title {
		// dotfile like ".env"
		return title, ""
	}
	return strings.TrimSuffix(title, ext), ext
}
