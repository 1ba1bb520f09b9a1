// Package match implements the watch-pattern grammar used to decide whether
// a set of changed files should trigger an image build. The grammar is
// deliberately small and implemented by hand: a general-purpose glob engine
// would match more than the documented forms.
package match

import "strings"

// Matches reports whether filename matches a watch pattern.
//
// Supported patterns:
//
//	*                   → matches anything
//	*.ext               → root-level files ending in .ext (no "/")
//	prefix/**/*         → anything under prefix
//	prefix/**/*.ext     → files ending in .ext anywhere under prefix
//	prefix/**/name      → files named with the exact suffix anywhere under prefix
//	prefix/*suffix      → one directory level under prefix
//	anything else       → exact string equality
//
// Filenames and patterns use "/" separators.
func Matches(filename, pattern string) bool {
	if pattern == "*" || pattern == filename {
		return true
	}

	if idx := strings.Index(pattern, "**"); idx >= 0 {
		// The prefix keeps its trailing "/" so matching stops at a
		// directory boundary: src/**/* must not match src-utils/app.js.
		prefix := pattern[:idx]
		suffix := strings.TrimPrefix(pattern[idx+2:], "/")

		if !strings.HasPrefix(filename, prefix) {
			return false
		}
		switch {
		case suffix == "*" || suffix == "":
			return true
		case strings.HasPrefix(suffix, "*."):
			return strings.HasSuffix(filename, suffix[1:])
		default:
			// Exact-name suffixes match whole path segments only,
			// so go.mod does not match cargo.mod.
			return filename == suffix || strings.HasSuffix(filename, "/"+suffix)
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		// Extension patterns without ** match root-level files only.
		return !strings.Contains(filename, "/") && strings.HasSuffix(filename, pattern[1:])
	}

	if idx := strings.Index(pattern, "*"); idx >= 0 {
		// Single * matches exactly one directory level under the prefix.
		prefix := pattern[:idx]
		suffix := pattern[idx+1:]

		if !strings.HasPrefix(filename, prefix) {
			return false
		}
		rest := filename[len(prefix):]
		if strings.Contains(rest, "/") {
			return false
		}
		return suffix == "" || strings.HasSuffix(rest, suffix)
	}

	return false
}

// IsBuildRequired reports whether any changed file matches any watch pattern.
// An empty watch list means "always build".
func IsBuildRequired(watchFiles, changedFiles []string) bool {
	if len(watchFiles) == 0 {
		return true
	}
	for _, changed := range changedFiles {
		for _, pattern := range watchFiles {
			if Matches(changed, pattern) {
				return true
			}
		}
	}
	return false
}
