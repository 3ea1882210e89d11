package session

import (
	"encoding/json"
	"strings"
)

// Block kinds, as they appear in serialized views.
const (
	KindChatAgent  = "chat_agent"
	KindChatCodex  = "chat_codex"
	KindThink      = "think"
	KindCode       = "code"
	KindToolCall   = "tool_call"
	KindToolResult = "tool_result"
	KindError      = "error"
	KindStatus     = "status"
	KindEvent      = "event"
	KindTerminal   = "terminal"
)

// Block is one rendered unit of session output.
type Block struct {
	Kind       string `json:"kind"`
	Label      string `json:"label"`
	Body       string `json:"body"`
	EventType  string `json:"event_type,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	Role       string `json:"role,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemStatus string `json:"item_status,omitempty"`
}

type event = map[string]any

// iterJSONObjects decodes the JSONL lines of text, skipping anything that is
// not a JSON object.
func iterJSONObjects(text string) []event {
	var parsed []event
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var item event
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		parsed = append(parsed, item)
	}
	return parsed
}

func pickNested(node any, path ...string) any {
	current := node
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func firstNonEmpty(values ...any) string {
	for _, value := range values {
		if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func eventType(ev event) string {
	return strings.ToLower(strings.TrimSpace(firstNonEmpty(ev["type"], ev["event"])))
}

func eventTimestamp(ev event) string {
	return firstNonEmpty(
		ev["timestamp"],
		ev["time"],
		ev["created_at"],
		ev["ts"],
		pickNested(ev, "response", "created_at"),
	)
}

func toolNameFromEvent(ev event) string {
	return firstNonEmpty(
		ev["tool_name"],
		pickNested(ev, "tool", "name"),
		pickNested(ev, "tool_call", "name"),
		pickNested(ev, "call", "name"),
		pickNested(ev, "function", "name"),
		pickNested(ev, "function_call", "name"),
	)
}

func normalizeItemField(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func extractTextFromContentPart(part map[string]any) string {
	for _, key := range []string{"text", "output_text", "input_text", "summary_text", "reasoning", "delta"} {
		if value, ok := part[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	switch payload := part["content"].(type) {
	case string:
		if strings.TrimSpace(payload) != "" {
			return payload
		}
	case map[string]any, []any:
		if rendered := formatPayload(payload); rendered != "" {
			return rendered
		}
	}
	return ""
}

// iterOutputItems collects the output items an event carries, whether nested
// under item, response.output, or output.
func iterOutputItems(ev event) []map[string]any {
	var items []map[string]any
	if item, ok := ev["item"].(map[string]any); ok {
		items = append(items, item)
	}
	if out, ok := pickNested(ev, "response", "output").([]any); ok {
		for _, entry := range out {
			if m, ok := entry.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}
	if out, ok := ev["output"].([]any); ok {
		for _, entry := range out {
			if m, ok := entry.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}
	return items
}

func itemIDFromItem(item map[string]any) string {
	return firstNonEmpty(
		item["id"],
		item["item_id"],
		item["output_item_id"],
		item["call_id"],
		item["tool_call_id"],
		pickNested(item, "call", "id"),
		pickNested(item, "function", "call_id"),
	)
}

func streamIDFromEvent(ev event) string {
	return firstNonEmpty(
		ev["item_id"],
		ev["output_item_id"],
		ev["call_id"],
		ev["tool_call_id"],
		pickNested(ev, "item", "id"),
		pickNested(ev, "delta", "id"),
	)
}

// splitChatAndCodeBlocks splits fenced code out of chat text so code renders
// as its own block.
func splitChatAndCodeBlocks(text, chatKind, chatLabel, evType, timestamp, itemType, role, itemID string) []Block {
	var blocks []Block
	cursor := 0

	chatBlock := func(body string) Block {
		return Block{
			Kind:      chatKind,
			Label:     chatLabel,
			Body:      truncate(body),
			EventType: evType,
			Timestamp: timestamp,
			ItemType:  itemType,
			Role:      role,
			ItemID:    itemID,
		}
	}

	for _, m := range codeFenceRe.FindAllStringSubmatchIndex(text, -1) {
		if before := normalizeFragment(text[cursor:m[0]]); before != "" {
			blocks = append(blocks, chatBlock(before))
		}
		language := strings.TrimSpace(text[m[2]:m[3]])
		if codeBody := normalizeFragment(text[m[4]:m[5]]); codeBody != "" {
			label := "Code"
			if language != "" {
				label = "Code · " + language
			}
			blocks = append(blocks, Block{
				Kind:      KindCode,
				Label:     label,
				Body:      truncate(codeBody),
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  "code",
				Role:      role,
				ItemID:    itemID,
			})
		}
		cursor = m[1]
	}

	if tail := normalizeFragment(text[cursor:]); tail != "" {
		blocks = append(blocks, chatBlock(tail))
	}

	if len(blocks) == 0 {
		if body := normalizeFragment(text); body != "" {
			blocks = append(blocks, chatBlock(body))
		}
	}

	return blocks
}

func reasoningType(evType string) bool {
	for _, token := range []string{"reasoning", "thinking", "thought", "analysis"} {
		if strings.Contains(evType, token) {
			return true
		}
	}
	return false
}

func extractReasoningFragments(ev event, evType string) []string {
	var fragments []string
	if delta, ok := ev["delta"].(string); ok {
		fragments = append(fragments, delta)
	}
	for _, key := range []string{"summary", "reasoning", "analysis", "thought", "text"} {
		if value, ok := ev[key].(string); ok {
			fragments = append(fragments, value)
		}
	}
	if reasoningType(evType) {
		fragments = append(fragments, collectRoleText(ev, "assistant", "")...)
	}
	var cleaned []string
	for _, fragment := range normalizeFragments(fragments) {
		if stripped := stripWrappedBold(fragment); stripped != "" {
			cleaned = append(cleaned, stripped)
		}
	}
	return cleaned
}

// eventDetail picks the most descriptive payload an event offers.
func eventDetail(ev event) string {
	for _, key := range []string{"message", "status", "summary", "detail", "error", "reason"} {
		if value, ok := ev[key]; ok {
			if detail := formatPayload(value); detail != "" {
				return detail
			}
		}
	}

	preview := make(map[string]any)
	for _, key := range []string{"id", "model", "role", "finish_reason"} {
		if value, ok := ev[key]; ok {
			preview[key] = value
		}
	}
	if len(preview) > 0 {
		if detail := formatPayload(preview); detail != "" {
			return detail
		}
	}

	return formatPayload(map[string]any(ev))
}

func isMessageItem(itemType string) bool {
	switch itemType {
	case "message", "agent_message", "assistant_message", "user_message":
		return true
	}
	return false
}

func isCommandItem(itemType string) bool {
	switch itemType {
	case "command_execution", "command", "shell_command":
		return true
	}
	return false
}

func isCallItem(itemType string) bool {
	if strings.HasSuffix(itemType, "_call") {
		return true
	}
	switch itemType {
	case "function_call", "tool_call", "web_search_call", "computer_call", "mcp_call":
		return true
	}
	return false
}

func isOutputItem(itemType string) bool {
	if strings.HasSuffix(itemType, "_output") {
		return true
	}
	switch itemType {
	case "function_call_output", "tool_result", "output":
		return true
	}
	return false
}

// eventItemsToBlocks maps structured output items to blocks by item type.
func eventItemsToBlocks(ev event, evType, timestamp string) []Block {
	var blocks []Block
	for _, item := range iterOutputItems(ev) {
		itemType := normalizeItemField(item["type"])
		role := normalizeItemField(item["role"])
		status := normalizeItemField(item["status"])
		itemID := itemIDFromItem(item)

		switch {
		case isMessageItem(itemType):
			messageRole := role
			if messageRole == "" {
				messageRole = "assistant"
			}
			switch itemType {
			case "agent_message", "user_message":
				messageRole = "user"
			case "assistant_message":
				messageRole = "assistant"
			}
			chatKind, chatLabel := KindChatAgent, "Agent"
			if messageRole == "assistant" {
				chatKind, chatLabel = KindChatCodex, "Codex"
			}

			var messageBlocks []Block
			if content, ok := item["content"].([]any); ok {
				for _, raw := range content {
					part, ok := raw.(map[string]any)
					if !ok {
						continue
					}
					partType := normalizeItemField(part["type"])
					if partType == "" {
						partType = itemType
					}
					text := extractTextFromContentPart(part)
					if text == "" {
						continue
					}
					messageBlocks = append(messageBlocks, splitChatAndCodeBlocks(
						text, chatKind, chatLabel, evType, timestamp, partType, messageRole, itemID)...)
				}
			}
			if len(messageBlocks) == 0 {
				fallback := firstNonEmpty(
					item["text"],
					item["output_text"],
					item["input_text"],
					pickNested(item, "message", "text"),
				)
				if fallback != "" {
					fallbackType := itemType
					if fallbackType == "" {
						fallbackType = "message"
					}
					messageBlocks = append(messageBlocks, splitChatAndCodeBlocks(
						fallback, chatKind, chatLabel, evType, timestamp, fallbackType, messageRole, itemID)...)
				}
			}
			blocks = append(blocks, messageBlocks...)

		case itemType == "reasoning" || itemType == "analysis" || itemType == "thinking" || itemType == "thought":
			text := firstNonEmpty(
				item["summary"],
				item["reasoning"],
				item["analysis"],
				item["text"],
				pickNested(item, "summary", "text"),
			)
			if text == "" {
				text = eventDetail(item)
			}
			if text = stripWrappedBold(text); text != "" {
				itType := itemType
				if itType == "" {
					itType = "reasoning"
				}
				itRole := role
				if itRole == "" {
					itRole = "assistant"
				}
				blocks = append(blocks, Block{
					Kind:      KindThink,
					Label:     "Think",
					Body:      truncate(text),
					EventType: evType,
					Timestamp: timestamp,
					ItemType:  itType,
					Role:      itRole,
					ItemID:    itemID,
				})
			}

		case isCommandItem(itemType):
			command := unwrapShellCommand(firstNonEmpty(
				item["command"],
				pickNested(item, "input", "command"),
			))
			commandState := status
			if commandState == "" {
				commandState = "in_progress"
			}
			if command != "" || itemID != "" {
				label := "Command"
				if commandState == "failed" || commandState == "error" {
					if exitCode, ok := item["exit_code"]; ok && exitCode != nil {
						label = "Command · exit " + formatPayload(exitCode)
					}
				}
				body := normalizeFragment(command)
				if body == "" {
					body = "(command unavailable)"
				}
				blocks = append(blocks, Block{
					Kind:       KindToolCall,
					Label:      label,
					Body:       truncate(body),
					EventType:  evType,
					Timestamp:  timestamp,
					ItemType:   itemType,
					Role:       "assistant",
					ItemID:     itemID,
					ItemStatus: commandState,
				})
			}

		case isCallItem(itemType):
			label := "Tool Call"
			if name := firstNonEmpty(item["name"], item["tool_name"], pickNested(item, "call", "name"), pickNested(item, "function", "name")); name != "" {
				label += " · " + name
			}
			payload := item["arguments"]
			if payload == nil {
				payload = item["input"]
			}
			if payload == nil {
				payload = map[string]any(item)
			}
			body := formatPayload(payload)
			if body == "" {
				body = "(no payload)"
			}
			itRole := role
			if itRole == "" {
				itRole = "assistant"
			}
			blocks = append(blocks, Block{
				Kind:      KindToolCall,
				Label:     label,
				Body:      body,
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  itemType,
				Role:      itRole,
				ItemID:    itemID,
			})

		case isOutputItem(itemType):
			label := "Tool Result"
			if name := firstNonEmpty(item["name"], item["tool_name"], pickNested(item, "call", "name"), pickNested(item, "function", "name")); name != "" {
				label += " · " + name
			}
			payload := item["output"]
			if payload == nil {
				payload = item["result"]
			}
			if payload == nil {
				payload = map[string]any(item)
			}
			body := formatPayload(payload)
			if body == "" {
				body = "(no payload)"
			}
			itRole := role
			if itRole == "" {
				itRole = "assistant"
			}
			blocks = append(blocks, Block{
				Kind:      KindToolResult,
				Label:     label,
				Body:      body,
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  itemType,
				Role:      itRole,
				ItemID:    itemID,
			})

		case itemType == "error" || itemType == "exception":
			body := eventDetail(item)
			if body == "" {
				body = "(unknown error)"
			}
			blocks = append(blocks, Block{
				Kind:      KindError,
				Label:     "Error",
				Body:      body,
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  itemType,
				Role:      role,
				ItemID:    itemID,
			})

		case itemType != "":
			body := eventDetail(item)
			if body == "" {
				body = "(no detail)"
			}
			blocks = append(blocks, Block{
				Kind:      KindEvent,
				Label:     "Item · " + itemType,
				Body:      body,
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  itemType,
				Role:      role,
				ItemID:    itemID,
			})
		}
	}
	return blocks
}

// eventToBlocks classifies one decoded event, preferring structured output
// items, then role-scoped text, then tool and error heuristics.
func eventToBlocks(ev event) []Block {
	evType := eventType(ev)
	timestamp := eventTimestamp(ev)

	if blocks := eventItemsToBlocks(ev, evType, timestamp); len(blocks) > 0 {
		return blocks
	}

	var blocks []Block

	if reasoningType(evType) {
		for _, fragment := range extractReasoningFragments(ev, evType) {
			blocks = append(blocks, Block{
				Kind:      KindThink,
				Label:     "Think",
				Body:      fragment,
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  "reasoning",
				Role:      "assistant",
				ItemID:    streamIDFromEvent(ev),
			})
		}
		if len(blocks) > 0 {
			return blocks
		}
	}

	var agentFragments []string
	agentFragments = append(agentFragments, normalizeFragments(collectRoleText(ev, "user", ""))...)
	agentFragments = append(agentFragments, normalizeFragments(collectRoleText(ev, "system", ""))...)
	for _, fragment := range normalizeFragments(agentFragments) {
		blocks = append(blocks, splitChatAndCodeBlocks(
			fragment, KindChatAgent, "Agent", evType, timestamp, "message", "user", streamIDFromEvent(ev))...)
	}

	for _, fragment := range normalizeFragments(collectRoleText(ev, "assistant", "")) {
		blocks = append(blocks, splitChatAndCodeBlocks(
			fragment, KindChatCodex, "Codex", evType, timestamp, "output_text", "assistant", streamIDFromEvent(ev))...)
	}

	if len(blocks) > 0 {
		return blocks
	}

	_, hasToolKey := ev["tool"]
	_, hasToolCallKey := ev["tool_call"]
	hasToolSignal := strings.Contains(evType, "tool") ||
		strings.Contains(evType, "function_call") ||
		toolNameFromEvent(ev) != "" ||
		hasToolKey || hasToolCallKey
	if hasToolSignal {
		toolName := toolNameFromEvent(ev)
		var kind, label string
		switch {
		case strings.Contains(evType, "result") || strings.Contains(evType, "output"):
			kind, label = KindToolResult, "Tool Result"
		case strings.Contains(evType, "error") || strings.Contains(evType, "fail"):
			kind, label = KindError, "Tool Error"
		default:
			kind, label = KindToolCall, "Tool Call"
		}
		if toolName != "" {
			label += " · " + toolName
		}

		var body string
		found := false
		for _, key := range []string{"arguments", "input", "result", "output", "content", "message", "error"} {
			if value, ok := ev[key]; ok {
				body = formatPayload(value)
				found = true
				break
			}
		}
		if !found {
			body = eventDetail(ev)
		}
		if body == "" {
			body = "(no payload)"
		}
		itemType := "tool_call"
		if kind == KindToolResult {
			itemType = "tool_result"
		}
		blocks = append(blocks, Block{
			Kind:      kind,
			Label:     label,
			Body:      body,
			EventType: evType,
			Timestamp: timestamp,
			ItemType:  itemType,
			Role:      "assistant",
			ItemID:    streamIDFromEvent(ev),
		})

		command := firstNonEmpty(
			pickNested(ev, "arguments", "command"),
			pickNested(ev, "input", "command"),
			ev["command"],
		)
		if command != "" {
			blocks = append(blocks, Block{
				Kind:      KindCode,
				Label:     "Code · command",
				Body:      truncate(normalizeFragment(command)),
				EventType: evType,
				Timestamp: timestamp,
				ItemType:  "code",
				Role:      "assistant",
				ItemID:    streamIDFromEvent(ev),
			})
		}
		return blocks
	}

	_, hasErrorKey := ev["error"]
	if strings.Contains(evType, "error") || strings.Contains(evType, "fail") || strings.Contains(evType, "exception") || hasErrorKey {
		body := formatPayload(firstNonEmptyValue(ev["error"], ev["message"]))
		if body == "" {
			body = eventDetail(ev)
		}
		if body == "" {
			body = "(unknown error)"
		}
		return []Block{{
			Kind:      KindError,
			Label:     "Error",
			Body:      body,
			EventType: evType,
			Timestamp: timestamp,
			ItemType:  "error",
			ItemID:    streamIDFromEvent(ev),
		}}
	}

	if strings.Contains(evType, "response.") || strings.Contains(evType, "session") || strings.Contains(evType, "status") ||
		evType == "started" || evType == "completed" {
		body := eventDetail(ev)
		if body == "" {
			body = evType
		}
		if body == "" {
			body = "status"
		}
		return []Block{{
			Kind:      KindStatus,
			Label:     "Status",
			Body:      body,
			EventType: evType,
			Timestamp: timestamp,
			ItemType:  "status",
			ItemID:    streamIDFromEvent(ev),
		}}
	}

	if evType == "" {
		return nil
	}

	body := eventDetail(ev)
	if body == "" {
		body = evType
	}
	return []Block{{
		Kind:      KindEvent,
		Label:     "Event",
		Body:      body,
		EventType: evType,
		Timestamp: timestamp,
		ItemType:  "event",
		ItemID:    streamIDFromEvent(ev),
	}}
}

// firstNonEmptyValue returns the first non-nil value.
func firstNonEmptyValue(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
