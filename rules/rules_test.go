package rules

import "testing"

func TestAccessRules_IsDenied(t *testing.T) {
	a, err := Build([]string{"Read(./.env)"}, "/repo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		path string
		op   Operation
		want bool
	}{
		{"/repo/.env", OperationRead, true},
		{"/repo/.env", OperationWrite, false},
		{"/repo/README.md", OperationRead, false},
		{"/repo/sub/.env", OperationRead, false},
	}

	for _, tc := range tests {
		if got := a.IsDenied(tc.path, tc.op); got != tc.want {
			t.Errorf("IsDenied(%q, %v) = %v, want %v", tc.path, tc.op, got, tc.want)
		}
	}
}

func TestAccessRules_NoDefaultDeny(t *testing.T) {
	a, err := Build(nil, "/repo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if a.IsDenied("/anything/at/all", OperationRead) {
		t.Error("empty rule set must allow everything (no default-deny)")
	}
}

func TestAccessRules_GlobDotfileRoundTrip(t *testing.T) {
	// spec.md §8: Read(./*.pem) matches exactly the files in C whose
	// basename ends with .pem, including dotfiles.
	a, err := Build([]string{"Read(./*.pem)"}, "/repo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, p := range []string{"/repo/a.pem", "/repo/.hidden.pem"} {
		if !a.IsDenied(p, OperationRead) {
			t.Errorf("IsDenied(%q) = false, want true", p)
		}
	}

	if a.IsDenied("/repo/a.txt", OperationRead) {
		t.Error("IsDenied(/repo/a.txt) = true, want false")
	}

	// '*' must not cross a path separator.
	if a.IsDenied("/repo/sub/a.pem", OperationRead) {
		t.Error("glob must not match across a directory boundary")
	}
}

func TestAccessRules_ExactFileRoundTrip(t *testing.T) {
	// spec.md §8: Read(./x) resolved under cwd C matches exactly {C/x}.
	a, err := Build([]string{"Read(./x)"}, "/repo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !a.IsDenied("/repo/x", OperationRead) {
		t.Error("IsDenied(/repo/x) = false, want true")
	}

	if a.IsDenied("/repo/xx", OperationRead) {
		t.Error("IsDenied(/repo/xx) = true, want false (no implicit glob)")
	}
}

func TestAccessRules_AbsolutePatternUnaffectedByCwd(t *testing.T) {
	a, err := Build([]string{"Write(/etc/passwd)"}, "/repo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !a.IsDenied("/etc/passwd", OperationWrite) {
		t.Error("absolute pattern should resolve independently of cwd")
	}
}

func TestBuild_RejectsRuleNotAnchored(t *testing.T) {
	_, err := Build([]string{"Read(etc/passwd)"}, "/repo")
	if err == nil {
		t.Fatal("Build should reject a path not starting with \"./\" or \"/\"")
	}
}

func TestBuild_RejectsInvalidGlob(t *testing.T) {
	_, err := Build([]string{"Read(./[unterminated)"}, "/repo")
	if err == nil {
		t.Fatal("Build should reject a malformed glob pattern")
	}
}

func TestBuild_PropagatesParseErrors(t *testing.T) {
	_, err := Build([]string{"NotAnOp(./x)"}, "/repo")
	if err == nil {
		t.Fatal("Build should surface Parse errors rather than panic")
	}
}
