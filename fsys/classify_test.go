package fsys

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/denyfs/denyfs/rules"
)

func TestClassifyOpenFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags uint32
		want  rules.Operation
	}{
		{"read-only", unix.O_RDONLY, rules.OperationRead},
		{"write-only", unix.O_WRONLY, rules.OperationWrite},
		{"read-write", unix.O_RDWR, rules.OperationWrite},
		{"create", unix.O_RDONLY | unix.O_CREAT, rules.OperationWrite},
		{"truncate", unix.O_RDONLY | unix.O_TRUNC, rules.OperationWrite},
		{"append", unix.O_WRONLY | unix.O_APPEND, rules.OperationWrite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyOpenFlags(uint32(tc.flags)); got != tc.want {
				t.Errorf("classifyOpenFlags(%#o) = %v, want %v", tc.flags, got, tc.want)
			}
		})
	}
}

func TestClassifyAccessMask(t *testing.T) {
	tests := []struct {
		name string
		mask uint32
		want []rules.Operation
	}{
		{"read only", unix.R_OK, []rules.Operation{rules.OperationRead}},
		{"write only", unix.W_OK, []rules.Operation{rules.OperationWrite}},
		{"exec only", unix.X_OK, []rules.Operation{rules.OperationExecute}},
		{"read+exec", unix.R_OK | unix.X_OK, []rules.Operation{rules.OperationRead, rules.OperationExecute}},
		{"F_OK existence only", unix.F_OK, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyAccessMask(uint32(tc.mask))
			if len(got) != len(tc.want) {
				t.Fatalf("classifyAccessMask(%#o) = %v, want %v", tc.mask, got, tc.want)
			}

			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("classifyAccessMask(%#o)[%d] = %v, want %v", tc.mask, i, got[i], tc.want[i])
				}
			}
		})
	}
}
