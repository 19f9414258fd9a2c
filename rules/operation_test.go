package rules

import "testing"

func TestOperation_StringRoundTrip(t *testing.T) {
	for _, op := range []Operation{OperationRead, OperationWrite, OperationExecute} {
		got, ok := parseOperation(op.String())
		if !ok || got != op {
			t.Errorf("parseOperation(%q) = %v, %v; want %v, true", op.String(), got, ok, op)
		}
	}
}

func TestOperation_LogString(t *testing.T) {
	tests := map[Operation]string{
		OperationRead:    "read",
		OperationWrite:   "write",
		OperationExecute: "execute",
	}

	for op, want := range tests {
		if got := op.LogString(); got != want {
			t.Errorf("%v.LogString() = %q, want %q", op, got, want)
		}
	}
}

func TestParseOperation_CaseSensitive(t *testing.T) {
	if _, ok := parseOperation("read"); ok {
		t.Error("parseOperation is documented as case-sensitive; \"read\" must not match")
	}
}
