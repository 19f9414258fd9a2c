package rules

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    DenyRule
		wantErr bool
	}{
		{
			name: "read absolute",
			text: "Read(/etc/shadow)",
			want: DenyRule{Operation: OperationRead, Pattern: PathPattern{Raw: "/etc/shadow"}},
		},
		{
			name: "write cwd-relative with glob",
			text: "Write(./*.pem)",
			want: DenyRule{Operation: OperationWrite, Pattern: PathPattern{Raw: "./*.pem"}},
		},
		{
			name: "execute with surrounding whitespace",
			text: "  Execute(/usr/bin/sudo)  ",
			want: DenyRule{Operation: OperationExecute, Pattern: PathPattern{Raw: "/usr/bin/sudo"}},
		},
		{
			name: "escaped close paren is literal",
			text: `Read(./weird\)name.txt)`,
			want: DenyRule{Operation: OperationRead, Pattern: PathPattern{Raw: `./weird\)name.txt`}},
		},
		{name: "unknown operation", text: "Delete(/x)", wantErr: true},
		{name: "missing parens", text: "Read /etc/shadow", wantErr: true},
		{name: "empty path", text: "Read()", wantErr: true},
		{name: "unescaped close paren in path", text: "Read(./a)b)", wantErr: true},
		{name: "missing open paren entirely", text: "Read", wantErr: true},
		{name: "no trailing paren", text: "Read(/etc", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, nil; want error", tc.text, got)
				}

				var syntaxErr *SyntaxError
				if !errors.As(err, &syntaxErr) {
					t.Fatalf("Parse(%q) error = %v (%T), want *SyntaxError", tc.text, err, err)
				}

				if syntaxErr.Text != tc.text {
					t.Errorf("SyntaxError.Text = %q, want %q (must carry original text)", syntaxErr.Text, tc.text)
				}

				return
			}

			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tc.text, err)
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}
