package core

import (
	"strings"
	"unicode/utf8"

	"pkt.systems/coderun/schema"
)

// transcript stores the output pane text and the consumed boundary.
// Text before consumed was produced by the backend or already submitted;
// text after it is user input that has not been sent yet.
// ScrollOffset is the number of lines from the bottom; 0 means at bottom.
type transcript struct {
	text         string
	consumed     int
	editable     bool
	scrollOffset int
	maxBytes     int
}

func newTranscript(maxBytes int) *transcript {
	if maxBytes <= 0 {
		maxBytes = schema.DefaultTranscriptMaxBytes
	}
	return &transcript{maxBytes: maxBytes}
}

// AppendOutput adds a backend chunk, advances the consumed boundary by the
// chunk length and returns the view to the bottom.
func (t *transcript) AppendOutput(chunk string) {
	if chunk == "" {
		return
	}
	t.text += chunk
	t.consumed += len(chunk)
	t.scrollOffset = 0
	t.trim()
}

// Type adds user-typed text without moving the consumed boundary.
func (t *transcript) Type(text string) {
	if text == "" {
		return
	}
	t.text += text
	t.scrollOffset = 0
	t.trim()
}

// PendingLine returns the last line of unconsumed text.
func (t *transcript) PendingLine() string {
	if t.consumed >= len(t.text) {
		return ""
	}
	pending := t.text[t.consumed:]
	if idx := strings.LastIndexByte(pending, '\n'); idx >= 0 {
		return pending[idx+1:]
	}
	return pending
}

// Newline ends the current input line.
func (t *transcript) Newline() {
	t.Type("\n")
}

// Consume marks everything currently in the transcript as submitted.
func (t *transcript) Consume() {
	t.consumed = len(t.text)
}

// Finish appends the marker on its own line and returns the appended text.
// A separating newline is only added when the text does not end with one.
func (t *transcript) Finish(marker string) string {
	appended := marker + "\n"
	if !strings.HasSuffix(t.text, "\n") {
		appended = "\n" + appended
	}
	t.text += appended
	t.consumed = len(t.text)
	t.editable = false
	t.scrollOffset = 0
	t.trim()
	return appended
}

// Clear empties the transcript and resets the boundary.
func (t *transcript) Clear() {
	t.text = ""
	t.consumed = 0
	t.scrollOffset = 0
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up (older lines),
// negative delta scrolls down. Limit is the viewport height.
func (t *transcript) Scroll(delta, limit int) {
	t.scrollOffset = clampScroll(t.scrollOffset+delta, len(t.lines()), limit)
}

// Snapshot returns a view of the transcript for the given viewport limit.
func (t *transcript) Snapshot(limit int) schema.TranscriptSnapshot {
	all := t.lines()
	total := len(all)
	if limit <= 0 || limit > total {
		limit = total
	}

	maxScroll := maxScroll(total, limit)
	if t.scrollOffset > maxScroll {
		t.scrollOffset = maxScroll
	}

	end := total - t.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	lines := make([]string, end-start)
	copy(lines, all[start:end])

	consumed := t.consumed
	if consumed > len(t.text) {
		consumed = len(t.text)
	}
	return schema.TranscriptSnapshot{
		Text:           t.text,
		ConsumedLength: consumed,
		Editable:       t.editable,
		Lines:          lines,
		TotalLines:     total,
		ScrollOffset:   t.scrollOffset,
		AtBottom:       t.scrollOffset == 0,
	}
}

// lines splits the text for display. A trailing newline does not open an
// extra empty line.
func (t *transcript) lines() []string {
	if t.text == "" {
		return nil
	}
	lines := strings.Split(t.text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// trim drops the oldest text once the transcript exceeds maxBytes, keeping
// the cut on a rune boundary and shifting the consumed boundary with it.
func (t *transcript) trim() {
	if t.maxBytes <= 0 || len(t.text) <= t.maxBytes {
		return
	}
	cut := len(t.text) - t.maxBytes
	for cut < len(t.text) && !utf8.RuneStart(t.text[cut]) {
		cut++
	}
	t.text = t.text[cut:]
	t.consumed -= cut
	if t.consumed < 0 {
		t.consumed = 0
	}
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
