package board

import "testing"

// TestDepsReady verifies readiness over gate tokens, task tokens, sentinels,
// and malformed tokens.
func TestDepsReady(t *testing.T) {
	status := map[string]string{
		"T1-001": "DONE",
		"T1-002": "TODO",
	}
	gates := map[string]GateState{
		"G1": GateDone,
		"G2": GatePending,
	}

	cases := []struct {
		name string
		deps string
		want bool
	}{
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"dash sentinel", "-", true},
		{"done task", "T1-001", true},
		{"todo task", "T1-002", false},
		{"unknown task", "T9-999", false},
		{"done gate", "G1", true},
		{"pending gate", "G2", false},
		{"unknown gate", "G9", false},
		{"mixed ready", "T1-001, G1", true},
		{"mixed one unready", "T1-001,G2", false},
		{"trailing comma", "T1-001,", true},
		{"malformed token", "none", false},
		{"malformed id", "X1-001", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DepsReady(tc.deps, status, gates); got != tc.want {
				t.Errorf("DepsReady(%q) = %v, want %v", tc.deps, got, tc.want)
			}
		})
	}
}

// TestStatusIndex verifies later duplicate rows win.
func TestStatusIndex(t *testing.T) {
	idx := StatusIndex([]Task{
		{ID: "T1-001", Status: "TODO"},
		{ID: "T1-001", Status: "DONE"},
	})
	if idx["T1-001"] != "DONE" {
		t.Errorf("StatusIndex duplicate = %q, want DONE (last row wins)", idx["T1-001"])
	}
}
