// Package hostsfile renders the docker-vhoster managed block and splices it
// into a hosts file that is otherwise owned by the user.
package hostsfile

import (
	"strings"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

const (
	MarkerStart = "# docker-vhoster managed block"
	MarkerEnd   = "# docker-vhoster block end"
)

// Render builds the managed block for the given records. Every line, the
// markers included, is newline terminated.
func Render(ip string, records []domain.ContainerRecord) string {
	var sb strings.Builder
	sb.WriteString(MarkerStart)
	sb.WriteString("\n")
	for _, r := range records {
		for _, h := range r.Hostnames {
			sb.WriteString(ip)
			sb.WriteString(" ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(MarkerEnd)
	sb.WriteString("\n")
	return sb.String()
}

// Apply replaces the managed block in existing with block, or appends block
// after a blank line when no complete block is present.
func Apply(existing, block string) string {
	start, end, ok := findBlock(existing)
	if ok {
		return existing[:start] + block + existing[end:]
	}
	if existing == "" {
		return block
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + block
}

// HasManagedBlock reports whether text holds both markers in order.
func HasManagedBlock(text string) bool {
	_, _, ok := findBlock(text)
	return ok
}

// findBlock returns the span from the start of the start-marker line through
// the end of the end-marker line, trailing newline included when present.
func findBlock(text string) (int, int, bool) {
	start, startEnd, ok := findMarkerLine(text, MarkerStart, 0)
	if !ok {
		return 0, 0, false
	}
	endStart, end, ok := findMarkerLine(text, MarkerEnd, startEnd)
	if !ok {
		return 0, 0, false
	}
	// An orphaned start marker ahead of the block must not be swallowed.
	for {
		s, se, found := findMarkerLine(text, MarkerStart, startEnd)
		if !found || s >= endStart {
			break
		}
		start, startEnd = s, se
	}
	return start, end, true
}

// findMarkerLine locates marker as a whole line at or after from.
func findMarkerLine(text, marker string, from int) (int, int, bool) {
	for from <= len(text) {
		idx := strings.Index(text[from:], marker)
		if idx < 0 {
			return 0, 0, false
		}
		idx += from
		lineEnd := idx + len(marker)
		atLineStart := idx == 0 || text[idx-1] == '\n'
		switch {
		case atLineStart && lineEnd == len(text):
			return idx, lineEnd, true
		case atLineStart && text[lineEnd] == '\n':
			return idx, lineEnd + 1, true
		case atLineStart && text[lineEnd] == '\r' && lineEnd+1 < len(text) && text[lineEnd+1] == '\n':
			return idx, lineEnd + 2, true
		}
		from = idx + 1
	}
	return 0, 0, false
}
