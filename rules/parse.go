package rules

import (
	"fmt"
	"strings"
)

// SyntaxError is returned by Parse when a rule string does not match the
// `Op(path)` grammar. It carries the original text so the caller (the
// config-loading collaborator) can report the offending rule verbatim.
type SyntaxError struct {
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid deny rule %q: %s", e.Text, e.Reason)
}

// DenyRule is a single (operation, pattern) entry. Multiple rules combine by
// OR (spec.md §3).
type DenyRule struct {
	Operation Operation
	Pattern   PathPattern
}

// Parse accepts exactly `Op(path)` where Op is one of Read, Write, Execute
// and path is a non-empty byte sequence that does not contain an unescaped
// ')'. Surrounding whitespace is trimmed. Any other shape is a *SyntaxError
// carrying the original text (spec.md §4.1).
//
// Parse does not enforce the "path starts with './' or '/'" constraint from
// spec.md §6 — that is an AccessRules-construction-time concern (see
// Build), because it requires a cwd to be meaningful and Parse has none.
func Parse(text string) (DenyRule, error) {
	trimmed := strings.TrimSpace(text)

	open := strings.IndexByte(trimmed, '(')
	if open <= 0 || !strings.HasSuffix(trimmed, ")") {
		return DenyRule{}, &SyntaxError{Text: text, Reason: "expected Op(path)"}
	}

	opName := trimmed[:open]

	op, ok := parseOperation(opName)
	if !ok {
		return DenyRule{}, &SyntaxError{
			Text:   text,
			Reason: fmt.Sprintf("unknown operation %q (want Read, Write or Execute)", opName),
		}
	}

	inner := trimmed[open+1 : len(trimmed)-1]
	if containsUnescapedCloseParen(inner) {
		return DenyRule{}, &SyntaxError{Text: text, Reason: "path contains an unescaped ')'"}
	}

	if inner == "" {
		return DenyRule{}, &SyntaxError{Text: text, Reason: "empty path"}
	}

	return DenyRule{Operation: op, Pattern: PathPattern{Raw: inner}}, nil
}

// containsUnescapedCloseParen reports whether s contains a ')' not preceded
// by a backslash escape. The trailing ')' that closes the Op(...) form is
// already excluded from s by the caller.
func containsUnescapedCloseParen(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ')' {
			continue
		}

		escaped := i > 0 && s[i-1] == '\\'
		if !escaped {
			return true
		}
	}

	return false
}
