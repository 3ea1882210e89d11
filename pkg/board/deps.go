package board

import (
	"regexp"
	"strings"
)

// Dependency token formats. A dep that matches neither pattern can never be
// satisfied.
var (
	gateIDRe = regexp.MustCompile(`^G\d+$`)
	taskIDRe = regexp.MustCompile(`^T\d+-\d+$`)
)

// StatusIndex maps task ID to status for dependency lookups. Later rows win
// on duplicate IDs, matching file order.
func StatusIndex(tasks []Task) map[string]string {
	idx := make(map[string]string, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t.Status
	}
	return idx
}

// DepsReady reports whether every dependency in the comma-separated deps
// field is satisfied. An empty field or the sentinel "-" is vacuously ready.
// Gate tokens require the gate to be DONE; task tokens require the task's
// status to be DONE; anything else is permanently unready.
func DepsReady(deps string, taskStatus map[string]string, gates map[string]GateState) bool {
	raw := strings.TrimSpace(deps)
	if raw == "" || raw == "-" {
		return true
	}

	for _, part := range strings.Split(raw, ",") {
		dep := strings.TrimSpace(part)
		if dep == "" {
			continue
		}

		switch {
		case gateIDRe.MatchString(dep):
			if gates[dep] != GateDone {
				return false
			}
		case taskIDRe.MatchString(dep):
			if taskStatus[dep] != StatusDone {
				return false
			}
		default:
			return false
		}
	}
	return true
}
