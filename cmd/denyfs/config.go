package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// ErrMalformedConfig is wrapped around any JSON decode failure in the
// settings file, so the caller can tell a missing file (no enforcement)
// from a broken one (fatal) without string-matching an error message.
var ErrMalformedConfig = errors.New("malformed settings file")

// settingsFile mirrors the on-disk shape of .claude/settings.json
// (spec.md §6): `{ "permissions": { "deny": [ "<rule string>", ... ] } }`.
type settingsFile struct {
	Permissions struct {
		Deny []string `json:"deny"`
	} `json:"permissions"`
}

// LoadDenyRules reads the deny-rule list out of .claude/settings.json in
// cwd. A missing file means an empty rule set (no enforcement, direct
// exec); any other read or decode failure is fatal rather than silently
// falling back.
//
// hujson is used here even though the deny-rule grammar itself is plain
// JSON, because a hand-edited settings file is exactly the kind of file
// hujson exists for: trailing commas and "//" comments are tolerated for
// free.
func LoadDenyRules(cwd string) ([]string, error) {
	path := filepath.Join(cwd, ".claude", "settings.json")

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
	}

	var settings settingsFile
	if err := json.Unmarshal(standard, &settings); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
	}

	return settings.Permissions.Deny, nil
}
