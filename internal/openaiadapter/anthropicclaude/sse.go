package anthropicclaude

import (
	"bytes"
	"strings"
)

// sseEvent is one server-sent event as decoded off the wire. Data spanning
// multiple data: lines is joined with newlines per the SSE specification.
type sseEvent struct {
	Name string
	Data string
}

// sseParser incrementally decodes a server-sent event stream. Bytes may
// arrive split at arbitrary positions, including in the middle of a field
// name or a UTF-8 sequence; feed buffers incomplete lines until the next
// chunk completes them.
type sseParser struct {
	buf       bytes.Buffer
	eventName string
	dataLines []string
}

// feed consumes a chunk of raw bytes and returns the events completed by it.
func (p *sseParser) feed(chunk []byte) []sseEvent {
	p.buf.Write(chunk)

	var events []sseEvent
	for {
		raw := p.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := string(raw[:idx])
		p.buf.Next(idx + 1)

		line = strings.TrimSuffix(line, "\r")
		if event, ok := p.consumeLine(line); ok {
			events = append(events, event)
		}
	}
	return events
}

// flush returns the pending event, if any, once the stream has ended without
// a trailing blank line.
func (p *sseParser) flush() (sseEvent, bool) {
	if remaining := strings.TrimSuffix(p.buf.String(), "\r"); remaining != "" {
		p.buf.Reset()
		p.consumeLine(remaining)
	}
	if len(p.dataLines) == 0 {
		return sseEvent{}, false
	}
	event := p.pending()
	p.eventName = ""
	p.dataLines = nil
	return event, true
}

func (p *sseParser) consumeLine(line string) (sseEvent, bool) {
	switch {
	case line == "":
		if len(p.dataLines) == 0 {
			p.eventName = ""
			return sseEvent{}, false
		}
		event := p.pending()
		p.eventName = ""
		p.dataLines = nil
		return event, true
	case strings.HasPrefix(line, ":"):
		// Comment line, typically a keep-alive.
		return sseEvent{}, false
	case strings.HasPrefix(line, "event:"):
		p.eventName = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		return sseEvent{}, false
	case strings.HasPrefix(line, "data:"):
		p.dataLines = append(p.dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		return sseEvent{}, false
	default:
		// Unknown fields (id, retry, anything else) are ignored.
		return sseEvent{}, false
	}
}

func (p *sseParser) pending() sseEvent {
	return sseEvent{Name: p.eventName, Data: strings.Join(p.dataLines, "\n")}
}
