package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	ansiRe      = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	codeFenceRe = regexp.MustCompile("(?s)```([^\n`]*)\n(.*?)```")
	shellWrapRe = regexp.MustCompile(`^(?:/bin/(?:ba|z)sh|bash|zsh)\s+-lc\s+(.+)$`)
)

// MaxPreviewChars caps the body of every rendered block.
const MaxPreviewChars = 1200

// StripANSI removes escape sequences and carriage returns from captured
// terminal output.
func StripANSI(text string) string {
	return ansiRe.ReplaceAllString(strings.ReplaceAll(text, "\r", ""), "")
}

func normalizeFragment(text string) string {
	return strings.TrimSpace(StripANSI(text))
}

func truncate(text string) string {
	if len(text) <= MaxPreviewChars {
		return text
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := MaxPreviewChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// formatPayload renders an arbitrary decoded JSON value for display.
func formatPayload(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return truncate(normalizeFragment(s))
	}
	rendered, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return truncate(strings.TrimSpace(StripANSI(fmt.Sprint(value))))
	}
	return truncate(strings.TrimSpace(StripANSI(string(rendered))))
}

// unwrapShellCommand peels `bash -lc '...'` wrappers off captured commands.
func unwrapShellCommand(command string) string {
	cleaned := normalizeFragment(command)
	if cleaned == "" {
		return ""
	}
	m := shellWrapRe.FindStringSubmatch(cleaned)
	if m == nil {
		return cleaned
	}
	payload := strings.TrimSpace(m[1])
	if len(payload) >= 2 && payload[0] == payload[len(payload)-1] && (payload[0] == '\'' || payload[0] == '"') {
		payload = payload[1 : len(payload)-1]
	}
	if inner := normalizeFragment(payload); inner != "" {
		return inner
	}
	return cleaned
}

// stripWrappedBold unwraps **...** around reasoning summaries, repeatedly.
func stripWrappedBold(text string) string {
	cleaned := normalizeFragment(text)
	for strings.HasPrefix(cleaned, "**") && strings.HasSuffix(cleaned, "**") && len(cleaned) > 4 {
		inner := strings.TrimSpace(cleaned[2 : len(cleaned)-2])
		if inner == "" {
			break
		}
		cleaned = inner
	}
	return cleaned
}

// roleFrame is one pending node in the role-scoped walk, carrying the role
// inherited from its enclosing object.
type roleFrame struct {
	node any
	role string
}

// collectRoleText walks a decoded event with an explicit stack and gathers
// every text or output_text string whose nearest enclosing role matches.
// Map keys are visited in sorted order so the walk is deterministic, and
// deeply nested payloads cannot exhaust the call stack.
func collectRoleText(root any, roleFilter, inheritedRole string) []string {
	var fragments []string
	stack := []roleFrame{{node: root, role: inheritedRole}}

	// Children are pushed in reverse so they pop in document order.
	push := func(frames []roleFrame) {
		for i := len(frames) - 1; i >= 0; i-- {
			stack = append(stack, frames[i])
		}
	}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := frame.node.(type) {
		case string:
			if frame.role == roleFilter {
				fragments = append(fragments, v)
			}
		case []any:
			children := make([]roleFrame, 0, len(v))
			for _, item := range v {
				children = append(children, roleFrame{node: item, role: frame.role})
			}
			push(children)
		case map[string]any:
			currentRole := frame.role
			if role, ok := v["role"].(string); ok && strings.TrimSpace(role) != "" {
				currentRole = strings.ToLower(strings.TrimSpace(role))
			}

			for _, key := range []string{"text", "output_text"} {
				if value, ok := v[key].(string); ok && currentRole == roleFilter {
					fragments = append(fragments, value)
				}
			}

			var children []roleFrame
			switch content := v["content"].(type) {
			case map[string]any, []any:
				children = append(children, roleFrame{node: content, role: currentRole})
			}

			keys := make([]string, 0, len(v))
			for key := range v {
				switch key {
				case "role", "text", "output_text", "content":
					continue
				}
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				switch value := v[key].(type) {
				case map[string]any, []any:
					children = append(children, roleFrame{node: value, role: currentRole})
				}
			}
			push(children)
		}
	}

	return fragments
}

// normalizeFragments cleans fragments, drops consecutive duplicates, and
// collapses a fragment that merely extends the previous long one.
func normalizeFragments(fragments []string) []string {
	var normalized []string
	for _, fragment := range fragments {
		cleaned := normalizeFragment(fragment)
		if cleaned == "" {
			continue
		}
		if n := len(normalized); n > 0 {
			prev := normalized[n-1]
			if cleaned == prev {
				continue
			}
			if strings.HasPrefix(cleaned, prev) && len(cleaned) > len(prev) && len(prev) > 24 {
				normalized[n-1] = cleaned
				continue
			}
		}
		normalized = append(normalized, cleaned)
	}
	return normalized
}
