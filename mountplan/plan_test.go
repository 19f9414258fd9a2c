package mountplan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/denyfs/denyfs/rules"
)

func build(t *testing.T, ruleTexts []string, cwd string) *rules.AccessRules {
	t.Helper()

	a, err := rules.Build(ruleTexts, cwd)
	if err != nil {
		t.Fatalf("rules.Build: %v", err)
	}

	return a
}

func TestPlan_LiteralFile(t *testing.T) {
	a := build(t, []string{"Read(./.env)"}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if diff := cmp.Diff([]string{"/repo"}, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_GlobLastSegment(t *testing.T) {
	a := build(t, []string{"Read(./*.pem)"}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if diff := cmp.Diff([]string{"/repo"}, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_GlobMiddleSegment(t *testing.T) {
	a := build(t, []string{"Read(/home/*/cache)"}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if diff := cmp.Diff([]string{"/home"}, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_AncestorCollapse(t *testing.T) {
	a := build(t, []string{
		"Read(/home/user/.env)",
		"Write(/home/user/cache/token)",
	}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// /home/user/cache is collapsed into /home/user.
	if diff := cmp.Diff([]string{"/home/user"}, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_AncestorCollapseIsSegmentWise(t *testing.T) {
	a := build(t, []string{
		"Read(/home/foo/.env)",
		"Read(/home/foobar/.env)",
	}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// "/home/foo" must not collapse "/home/foobar" (string-prefix trap).
	want := []string{"/home/foo", "/home/foobar"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_EmptyRuleSetIsEmptyPlan(t *testing.T) {
	a := build(t, nil, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(got) != 0 {
		t.Errorf("Plan(empty rules) = %v, want empty", got)
	}
}

func TestPlan_RootMountRejected(t *testing.T) {
	a := build(t, []string{"Read(/*)"}, "/repo")

	_, err := Plan(a)
	if !errors.Is(err, ErrPatternTooBroad) {
		t.Fatalf("Plan = %v, want ErrPatternTooBroad", err)
	}
}

func TestPlan_DeterministicOrder(t *testing.T) {
	a := build(t, []string{
		"Read(/zzz/.env)",
		"Read(/aaa/.env)",
		"Read(/mmm/.env)",
	}, "/repo")

	got, err := Plan(a)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []string{"/aaa", "/mmm", "/zzz"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestIsSegmentAncestor(t *testing.T) {
	tests := []struct {
		ancestor, path string
		want           bool
	}{
		{"/foo", "/foo/bar", true},
		{"/foo", "/foobar", false},
		{"/foo", "/foo", true},
		{"/", "/anything", true},
	}

	for _, tc := range tests {
		if got := isSegmentAncestor(tc.ancestor, tc.path); got != tc.want {
			t.Errorf("isSegmentAncestor(%q, %q) = %v, want %v", tc.ancestor, tc.path, got, tc.want)
		}
	}
}
