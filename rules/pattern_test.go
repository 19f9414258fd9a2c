package rules

import "testing"

func TestPathPattern_Resolve(t *testing.T) {
	tests := []struct {
		raw  string
		cwd  string
		want string
	}{
		{"./x", "/repo", "/repo/x"},
		{"./sub/*.pem", "/repo", "/repo/sub/*.pem"},
		{"/etc/passwd", "/repo", "/etc/passwd"},
		{".", "/repo", "/repo"},
	}

	for _, tc := range tests {
		p := PathPattern{Raw: tc.raw}
		if got := p.resolve(tc.cwd); got != tc.want {
			t.Errorf("PathPattern{%q}.resolve(%q) = %q, want %q", tc.raw, tc.cwd, got, tc.want)
		}
	}
}

func TestMatchAbs(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/repo/.env", "/repo/.env", true},
		{"/repo/*.pem", "/repo/a.pem", true},
		{"/repo/*.pem", "/repo/.hidden.pem", true},
		{"/repo/*.pem", "/repo/sub/a.pem", false},
		{"/repo/?.txt", "/repo/a.txt", true},
		{"/repo/?.txt", "/repo/ab.txt", false},
		{"/repo/[ab].txt", "/repo/a.txt", true},
		{"/repo/[ab].txt", "/repo/c.txt", false},
	}

	for _, tc := range tests {
		if got := matchAbs(tc.pattern, tc.path); got != tc.want {
			t.Errorf("matchAbs(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestHasMetachar(t *testing.T) {
	if hasMetachar("/repo/.env") {
		t.Error("literal path must not be reported as having metacharacters")
	}

	for _, s := range []string{"/repo/*.pem", "/repo/?.txt", "/repo/[ab].txt"} {
		if !hasMetachar(s) {
			t.Errorf("hasMetachar(%q) = false, want true", s)
		}
	}
}
