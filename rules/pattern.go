package rules

import (
	"path"
	"strings"
)

// PathPattern is a path pattern as it appears in a rule string, before it is
// anchored to an absolute path (see resolve).
//
// Anchor is either absolute ("/…") or cwd-relative ("./…"); Raw is the path
// text copied verbatim from the rule string (including the "./" or leading
// "/", per spec.md §6 — inner characters are copied verbatim, glob
// metacharacters included).
type PathPattern struct {
	Raw string
}

// isAbsAnchor reports whether the raw pattern is already rooted.
func (p PathPattern) isAbsAnchor() bool {
	return strings.HasPrefix(p.Raw, "/")
}

// resolve rewrites a cwd-relative pattern to an absolute one by prepending
// cwd (assumed already canonicalized; this layer performs no symlink
// resolution, per spec.md §4.1).
//
// cwd-relative patterns are anchored with "./"; resolve strips that prefix
// before joining so "./x" under cwd "/repo" becomes "/repo/x", not
// "/repo/./x".
func (p PathPattern) resolve(cwd string) string {
	if p.isAbsAnchor() {
		return path.Clean(p.Raw)
	}

	rel := strings.TrimPrefix(p.Raw, "./")

	return path.Clean(path.Join(cwd, rel))
}

// matchAbs reports whether absPath (already absolute and lexically
// normalized) matches the absolute glob pattern absPattern.
//
// Glob metacharacters are '*' (any run of non-separator characters, never
// crossing '/'), '?' (one non-separator character) and '[...]' (character
// class); a '\\' makes the next character literal, and everything else
// matches literally. This is path.Match's own syntax. '?' and a character
// class each consume one UTF-8 character, not one byte, so on a multi-byte
// character they do not behave byte-wise. path.Match treats '/' as the one structural
// separator and never lets '*'/'?' consume it — and, unlike shell globbing,
// it has no special-case rule for a leading '.', so dotfiles match '*' and
// character classes the same as any other name, matching spec.md §3
// verbatim. No third-party library in the retrieval pack implements
// "match one literal path against a pattern" (the pack's other glob code,
// e.g. cmd/agent-sandbox/path.go's ExpandGlob, enumerates real files via
// filepath.Glob — a different operation), so this stays on the standard
// library by design.
func matchAbs(absPattern, absPath string) bool {
	ok, err := path.Match(absPattern, absPath)
	if err != nil {
		// A malformed pattern (e.g. an unterminated "[") is rejected at
		// AccessRules construction time (see rules.go); by the time we're
		// matching, absPattern is known-valid, so treat this defensively
		// as "no match" rather than propagating an error from a hot path.
		return false
	}

	return ok
}

// hasMetachar reports whether a pattern has glob metacharacters anywhere.
func hasMetachar(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
