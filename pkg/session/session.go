// Package session turns captured worker output into a small set of display
// blocks. Structured JSONL event logs are authoritative; raw terminal
// captures are the fallback. Parsing is lossy on purpose: the result is a
// bounded preview for dashboards, not an archive.
package session

import (
	"io"
	"os"
	"strings"
)

// Defaults for the bounded preview.
const (
	DefaultMaxBlocks    = 12
	DefaultMaxLines     = 260
	DefaultTailBytes    = 180_000
	noOutputPlaceholder = "(No output yet)"
)

// View is the normalized result of one parse.
type View struct {
	Source       string  `json:"source"` // "jsonl" or "transcript"
	ParsedEvents int     `json:"parsed_events"`
	Blocks       []Block `json:"blocks"`
}

// Render is a markdown rendering of a View.
type Render struct {
	Markdown     string `json:"markdown"`
	Source       string `json:"source"`
	ParsedEvents int    `json:"parsed_events"`
}

// Options bound the size of a parsed view. Zero values take the defaults.
type Options struct {
	MaxBlocks int
	MaxLines  int
}

func (o Options) withDefaults() Options {
	if o.MaxBlocks <= 0 {
		o.MaxBlocks = DefaultMaxBlocks
	}
	if o.MaxLines == 0 {
		o.MaxLines = DefaultMaxLines
	}
	return o
}

// ReadTail returns up to maxBytes from the end of path, decoded leniently.
// Missing or unreadable files come back empty.
func ReadTail(path string, maxBytes int64) string {
	if path == "" || maxBytes <= 0 {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	if size := info.Size(); size > maxBytes {
		if _, err := f.Seek(size-maxBytes, io.SeekStart); err != nil {
			return ""
		}
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return ""
	}
	return string(raw)
}

// deltaBuffers accumulates streamed text per stream id, preserving the order
// streams first appeared.
type deltaBuffers struct {
	order []string
	data  map[string]string
}

func newDeltaBuffers() *deltaBuffers {
	return &deltaBuffers{data: make(map[string]string)}
}

func (d *deltaBuffers) add(streamID, delta string) {
	if _, ok := d.data[streamID]; !ok {
		d.order = append(d.order, streamID)
	}
	d.data[streamID] += delta
}

func (d *deltaBuffers) reset() {
	d.order = nil
	d.data = make(map[string]string)
}

// appendUnique drops a block that exactly repeats the previous one.
func appendUnique(blocks []Block, block Block) []Block {
	if n := len(blocks); n > 0 {
		prev := blocks[n-1]
		if block.Kind == prev.Kind &&
			block.Body == prev.Body &&
			block.EventType == prev.EventType &&
			block.ItemType == prev.ItemType &&
			block.Role == prev.Role &&
			block.ItemID == prev.ItemID &&
			block.ItemStatus == prev.ItemStatus {
			return blocks
		}
	}
	return append(blocks, block)
}

const defaultStream = "__default__"

// flushDeltas converts the buffered text and reasoning streams into blocks
// and clears the buffers.
func flushDeltas(blocks []Block, text, think *deltaBuffers, timestamp string) []Block {
	for _, streamID := range text.order {
		flushed := normalizeFragment(text.data[streamID])
		if flushed == "" {
			continue
		}
		itemID := streamID
		if itemID == defaultStream {
			itemID = ""
		}
		for _, block := range splitChatAndCodeBlocks(
			flushed, KindChatCodex, "Codex", "response.output_text.delta", timestamp, "output_text", "assistant", itemID) {
			blocks = appendUnique(blocks, block)
		}
	}

	for _, streamID := range think.order {
		flushed := normalizeFragment(think.data[streamID])
		if flushed == "" {
			continue
		}
		itemID := streamID
		if itemID == defaultStream {
			itemID = ""
		}
		blocks = appendUnique(blocks, Block{
			Kind:      KindThink,
			Label:     "Think",
			Body:      stripWrappedBold(flushed),
			EventType: "response.reasoning.delta",
			Timestamp: timestamp,
			ItemType:  "reasoning",
			Role:      "assistant",
			ItemID:    itemID,
		})
	}

	text.reset()
	think.reset()
	return blocks
}

// renderFromEvents turns decoded events into raw blocks, coalescing
// streaming deltas until a non-delta event arrives.
func renderFromEvents(events []event, maxBlocks int) []Block {
	var blocks []Block
	textDeltas := newDeltaBuffers()
	thinkDeltas := newDeltaBuffers()

	for _, ev := range events {
		evType := eventType(ev)
		streamID := streamIDFromEvent(ev)
		if streamID == "" {
			streamID = defaultStream
		}
		if delta, ok := ev["delta"].(string); ok {
			if strings.Contains(evType, "assistant") || strings.Contains(evType, "output_text") {
				textDeltas.add(streamID, delta)
				continue
			}
			if reasoningType(evType) {
				thinkDeltas.add(streamID, delta)
				continue
			}
		}

		blocks = flushDeltas(blocks, textDeltas, thinkDeltas, eventTimestamp(ev))
		for _, block := range eventToBlocks(ev) {
			blocks = appendUnique(blocks, block)
		}
	}

	blocks = flushDeltas(blocks, textDeltas, thinkDeltas, "")

	if len(blocks) > maxBlocks {
		blocks = blocks[len(blocks)-maxBlocks:]
	}
	return blocks
}

// normalizeCLIView keeps conversational block kinds, merges adjacent chatter,
// and amends command executions in place as their status events stream in.
func normalizeCLIView(blocks []Block, maxBlocks int) []Block {
	if len(blocks) == 0 {
		return nil
	}

	allowed := map[string]bool{
		KindChatAgent:  true,
		KindChatCodex:  true,
		KindThink:      true,
		KindCode:       true,
		KindToolCall:   true,
		KindToolResult: true,
		KindError:      true,
		KindTerminal:   true,
	}
	mergeable := map[string]bool{
		KindChatAgent: true,
		KindChatCodex: true,
		KindThink:     true,
		KindTerminal:  true,
	}

	var merged []Block
	// Command blocks are amended in place as later events for the same item
	// id stream in; this maps item id to the index of its command block.
	commandIndex := make(map[string]int)

	for _, block := range blocks {
		if !allowed[block.Kind] {
			continue
		}
		body := normalizeFragment(block.Body)
		if body == "" {
			continue
		}

		if block.Kind == KindToolCall && isCommandItem(block.ItemType) && block.ItemID != "" {
			if i, ok := commandIndex[block.ItemID]; ok {
				existing := &merged[i]
				if body != "(command unavailable)" {
					existing.Body = truncate(body)
				}
				if block.ItemStatus != "" {
					existing.ItemStatus = block.ItemStatus
				}
				if block.Label != "" {
					existing.Label = block.Label
				}
				if block.Timestamp != "" {
					existing.Timestamp = block.Timestamp
				}
				continue
			}
			commandIndex[block.ItemID] = len(merged)
		}

		if n := len(merged); n > 0 && mergeable[block.Kind] {
			prev := &merged[n-1]
			if prev.Kind == block.Kind &&
				prev.Label == block.Label &&
				prev.ItemType == block.ItemType &&
				prev.Role == block.Role &&
				(prev.ItemID == block.ItemID || (prev.ItemID == "" && block.ItemID == "")) {
				prev.Body = truncate(prev.Body + "\n\n" + body)
				if prev.Timestamp == "" && block.Timestamp != "" {
					prev.Timestamp = block.Timestamp
				}
				continue
			}
		}

		merged = append(merged, Block{
			Kind:       block.Kind,
			Label:      block.Label,
			Body:       truncate(body),
			Timestamp:  block.Timestamp,
			ItemType:   block.ItemType,
			Role:       block.Role,
			ItemID:     block.ItemID,
			ItemStatus: block.ItemStatus,
		})
	}

	if len(merged) == 0 {
		// Everything got filtered; surface the last raw block as terminal
		// output rather than nothing.
		tail := blocks[len(blocks)-1]
		body := normalizeFragment(tail.Body)
		if body == "" {
			body = noOutputPlaceholder
		}
		itemType := tail.ItemType
		if itemType == "" {
			itemType = "terminal"
		}
		return []Block{{
			Kind:       KindTerminal,
			Label:      "Terminal",
			Body:       truncate(body),
			Timestamp:  tail.Timestamp,
			ItemType:   itemType,
			Role:       tail.Role,
			ItemID:     tail.ItemID,
			ItemStatus: tail.ItemStatus,
		}}
	}

	if len(merged) > maxBlocks {
		merged = merged[len(merged)-maxBlocks:]
	}
	return merged
}

// renderTranscript compacts a raw capture: escape codes stripped, trailing
// lines kept, blank runs limited to two.
func renderTranscript(text string, maxLines int) string {
	cleaned := StripANSI(text)
	lines := strings.Split(cleaned, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	var compact []string
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			compact = append(compact, strings.TrimRight(line, " \t"))
			blanks = 0
			continue
		}
		blanks++
		if blanks <= 2 {
			compact = append(compact, "")
		}
	}

	body := strings.TrimSpace(strings.Join(compact, "\n"))
	if body == "" {
		return noOutputPlaceholder
	}
	return body
}

// Parse normalizes a session capture. The structured log tail wins when it
// parses as JSONL; otherwise the raw capture is rendered as a transcript.
func Parse(rawCapture, logTail string, opts Options) View {
	opts = opts.withDefaults()

	sourceText := logTail
	if strings.TrimSpace(sourceText) == "" {
		sourceText = rawCapture
	}

	events := iterJSONObjects(sourceText)
	if len(events) > 0 {
		rawBudget := opts.MaxBlocks * 4
		if rawBudget < 64 {
			rawBudget = 64
		}
		rawBlocks := renderFromEvents(events, rawBudget)
		if len(rawBlocks) > 0 {
			return View{
				Source:       "jsonl",
				ParsedEvents: len(events),
				Blocks:       normalizeCLIView(rawBlocks, opts.MaxBlocks),
			}
		}
	}

	fallback := sourceText
	if strings.TrimSpace(fallback) == "" {
		fallback = rawCapture
	}
	body := renderTranscript(fallback, opts.MaxLines)
	blocks := splitChatAndCodeBlocks(body, KindTerminal, "Terminal", "capture", "", "", "", "")
	if len(blocks) == 0 {
		blocks = []Block{{
			Kind:      KindTerminal,
			Label:     "Terminal",
			Body:      noOutputPlaceholder,
			EventType: "capture",
			ItemType:  "terminal",
		}}
	}

	return View{Source: "transcript", ParsedEvents: 0, Blocks: blocks}
}

// Markdown renders a view for plain-text consumers.
func Markdown(view View) string {
	if len(view.Blocks) == 0 {
		return noOutputPlaceholder
	}

	var lines []string
	for _, block := range view.Blocks {
		lines = append(lines, "### "+block.Label)
		if block.EventType != "" {
			lines = append(lines, "`"+block.EventType+"`")
		}
		if block.ItemType != "" {
			lines = append(lines, "`item.type: "+block.ItemType+"`")
		}
		if block.ItemID != "" {
			lines = append(lines, "`item.id: "+block.ItemID+"`")
		}
		if block.Timestamp != "" {
			lines = append(lines, "_time: "+block.Timestamp+"_")
		}
		lines = append(lines, "")
		body := block.Body
		if body == "" {
			body = "(no content)"
		}
		lines = append(lines, body, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
