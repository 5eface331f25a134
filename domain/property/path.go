package property

import "strings"

// Root is the path of a channel's property tree root.
const Root = "/"

// Join prepends a channel's property base to a caller-relative path.
// An empty base returns the path unchanged; joining the root path
// returns the base itself.
func Join(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" || path == Root {
		return base
	}
	return base + path
}

// MatchesBase reports whether path lies inside the subtree rooted at
// base. Matching is segment-aware: "/plugins/x" covers "/plugins/x"
// and "/plugins/x/y" but never "/plugins/xy". An empty base covers
// everything.
func MatchesBase(base, path string) bool {
	if base == "" {
		return true
	}
	if !strings.HasPrefix(path, base) {
		return false
	}
	rest := path[len(base):]
	return rest == "" || rest[0] == '/'
}

// Rebase strips base from path, yielding the channel-relative path.
// The caller must have checked MatchesBase first. Rebasing the base
// itself yields Root.
func Rebase(base, path string) string {
	if base == "" {
		return path
	}
	rest := path[len(base):]
	if rest == "" {
		return Root
	}
	return rest
}

// ValidPath reports whether p is a well-formed property path: absolute,
// no empty segments, no trailing slash (except the root itself).
func ValidPath(p string) bool {
	if p == Root {
		return true
	}
	if p == "" || p[0] != '/' || strings.HasSuffix(p, "/") {
		return false
	}
	return !strings.Contains(p, "//")
}
