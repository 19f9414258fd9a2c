package rules

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// compiledRule is a DenyRule after its pattern has been anchored to an
// absolute path.
type compiledRule struct {
	raw          string // original rule text, for debug output
	absPattern   string
	hasMetachars bool
}

// AccessRules is an ordered, immutable set of DenyRules indexed by
// Operation for fast querying (spec.md §4.1). It is built once by Build and
// never mutated afterward, so concurrent IsDenied calls need no
// synchronization.
type AccessRules struct {
	byOp map[Operation][]compiledRule
}

// Build resolves every rule's pattern to an absolute pattern using cwd
// (assumed already canonicalized; see PathPattern.resolve) and indexes the
// result by Operation.
//
// Build additionally enforces the grammar constraint from spec.md §6 that a
// rule's path must start with "./" or "/" — Parse does not check this
// because it has no cwd to resolve against.
//
// Every rule is checked regardless of earlier failures and all resulting
// errors are returned together via errors.Join, the same aggregation
// sandbox/validate.go uses for its own config input boundary: a config
// error is fatal at startup (spec.md §7), so citing every offending rule
// in one report saves a user a fix-rerun-fix cycle per bad line.
func Build(ruleTexts []string, cwd string) (*AccessRules, error) {
	byOp := make(map[Operation][]compiledRule, 3)

	var errs []error

	for _, text := range ruleTexts {
		rule, err := Parse(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		raw := rule.Pattern.Raw
		if !strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "./") {
			errs = append(errs, &SyntaxError{
				Text:   text,
				Reason: `path must start with "./" or "/"`,
			})
			continue
		}

		absPattern := rule.Pattern.resolve(cwd)

		// path.Match's error (malformed bracket expression) does not depend
		// on the name being matched, so validate the pattern against itself.
		if _, err := path.Match(absPattern, absPattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid deny rule %q: %w", text, err))
			continue
		}

		byOp[rule.Operation] = append(byOp[rule.Operation], compiledRule{
			raw:          text,
			absPattern:   absPattern,
			hasMetachars: hasMetachar(absPattern),
		})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &AccessRules{byOp: byOp}, nil
}

// IsDenied reports whether op on path is denied. path must be absolute and
// lexically normalized (no ".", no "..", no empty segments, no trailing "/"
// except root) — callers within this module (the Pass-Through Filesystem)
// are responsible for that invariant; rule matching itself is purely
// lexical (spec.md §4.1, §9).
//
// There is no default-deny: absent a matching rule, IsDenied returns false.
func (a *AccessRules) IsDenied(path_ string, op Operation) bool {
	if a == nil {
		return false
	}

	for _, r := range a.byOp[op] {
		if matchAbs(r.absPattern, path_) {
			return true
		}
	}

	return false
}

// Patterns returns the absolute patterns registered for op, in rule
// declaration order. Used by the Mount-Point Planner and by debug tooling;
// it is not part of the hot matching path.
func (a *AccessRules) Patterns(op Operation) []string {
	if a == nil {
		return nil
	}

	rs := a.byOp[op]
	out := make([]string, len(rs))

	for i, r := range rs {
		out[i] = r.absPattern
	}

	return out
}

// AllPatterns returns every absolute pattern across all operations, in no
// particular cross-operation order but stable within a single Operation.
// Used by the Mount-Point Planner, which only cares about path shape, not
// which operation a rule gates.
func (a *AccessRules) AllPatterns() []string {
	if a == nil {
		return nil
	}

	var out []string

	for _, op := range []Operation{OperationRead, OperationWrite, OperationExecute} {
		out = append(out, a.Patterns(op)...)
	}

	return out
}
