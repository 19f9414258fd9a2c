// Package mountplan derives the minimal set of directories that must be
// replaced by the Pass-Through Filesystem for a given set of deny rules
// (spec.md §3, §4.2).
package mountplan

import (
	"errors"
	"sort"
	"strings"

	"github.com/denyfs/denyfs/rules"
)

// ErrPatternTooBroad is returned by Plan when a rule pattern would require
// mounting "/" itself. The plan never includes the filesystem root; such a
// rule set is rejected as unsafe rather than silently narrowed.
var ErrPatternTooBroad = errors.New("mountplan: rule pattern too broad (would require mounting /)")

// Plan computes the minimal cover of directories that must be mounted with
// the Pass-Through Filesystem to enforce every rule in a.
//
// For each rule pattern: the literal (non-glob) leading segments form a
// candidate directory. If the pattern is a bare literal path (no glob
// metacharacter anywhere), the candidate is that literal path's parent
// directory — the rule targets one file, so its directory must be mounted.
// If the pattern contains a glob segment, the candidate is the literal
// directory formed by every segment strictly before the first glob
// segment — that directory is where matches can occur, and no further
// "parent of" step applies because, unlike the literal case, that directory
// is not itself one of the matched paths.
//
// Candidates are then reduced by ancestor-collapse: if one candidate is a
// path-segment-wise ancestor of another, only the shallower one is kept
// (mounting the ancestor already interposes everything below it). The
// ancestor check operates on path segments, not string prefixes, so "/foo"
// collapses "/foo/bar" but never "/foobar" (spec.md §4.2).
//
// Plan returns paths in lexical order for deterministic mounting.
func Plan(a *rules.AccessRules) ([]string, error) {
	candidates := make(map[string]struct{})

	for _, pattern := range a.AllPatterns() {
		dir := candidateDir(pattern)

		if dir == "/" {
			return nil, ErrPatternTooBroad
		}

		candidates[dir] = struct{}{}
	}

	return collapseAncestors(candidates), nil
}

// candidateDir computes the candidate mount-point directory for one
// absolute pattern, per the rule documented on Plan.
func candidateDir(absPattern string) string {
	segments := splitSegments(absPattern)

	firstGlob := -1

	for i, seg := range segments {
		if hasMetachar(seg) {
			firstGlob = i
			break
		}
	}

	var dirSegments []string
	if firstGlob == -1 {
		// Fully literal: the candidate is the parent directory of the file
		// the rule targets.
		if len(segments) == 0 {
			return "/"
		}

		dirSegments = segments[:len(segments)-1]
	} else {
		// The candidate is the directory formed by every literal segment
		// before the glob segment itself.
		dirSegments = segments[:firstGlob]
	}

	if len(dirSegments) == 0 {
		return "/"
	}

	return "/" + strings.Join(dirSegments, "/")
}

func splitSegments(absPath string) []string {
	trimmed := strings.Trim(absPath, "/")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "/")
}

func hasMetachar(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// collapseAncestors keeps only the shallowest candidate in each ancestor
// chain, comparing by path segment rather than raw string prefix, then
// returns the survivors sorted lexically.
func collapseAncestors(candidates map[string]struct{}) []string {
	all := make([]string, 0, len(candidates))
	for c := range candidates {
		all = append(all, c)
	}

	sort.Strings(all)

	kept := make([]string, 0, len(all))

	for _, c := range all {
		covered := false

		for _, k := range kept {
			if isSegmentAncestor(k, c) {
				covered = true
				break
			}
		}

		if !covered {
			kept = append(kept, c)
		}
	}

	sort.Strings(kept)

	return kept
}

// isSegmentAncestor reports whether ancestor is a path-segment prefix of
// path (or equal to it). "/foo" is an ancestor of "/foo/bar" but not of
// "/foobar".
func isSegmentAncestor(ancestor, path string) bool {
	if ancestor == path {
		return true
	}

	if ancestor == "/" {
		return true
	}

	return strings.HasPrefix(path, ancestor+"/")
}
