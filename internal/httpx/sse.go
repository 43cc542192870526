package httpx

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB). The
// default bufio.Scanner limit is 64 KiB, which is too small for large SSE
// events such as tool-call arguments or long completions. A longer line
// surfaces as a wrapped bufio.ErrTooLong from Next.
const maxSSELineSize = 1 * 1024 * 1024

// SSEEvent is one decoded Server-Sent Event. Type is the value of the
// "event:" field ("" when the server sends untyped frames, as
// OpenAI-compatible services do); Data is the payload with multi-line data
// fields joined by newlines.
type SSEEvent struct {
	Type string
	Data string
}

// SSEScanner reads Server-Sent Events from an io.Reader. It handles typed
// frames ("event:" lines, used by Anthropic and MCP), multi-line data
// fields, comments, and the "data: [DONE]" sentinel used by
// OpenAI-compatible services, which is reported as io.EOF.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading from the given reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the stream ends or
// the [DONE] sentinel is encountered; any other error is a decoding or
// transport failure.
func (s *SSEScanner) Next() (SSEEvent, error) {
	var event SSEEvent
	var dataLines []string

	flush := func() SSEEvent {
		event.Data = strings.Join(dataLines, "\n")
		return event
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// A blank line terminates the current event.
		if line == "" {
			if len(dataLines) > 0 || event.Type != "" {
				return flush(), nil
			}
			continue
		}

		// SSE comments start with a colon.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return SSEEvent{}, io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (id:, retry:) are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return SSEEvent{}, fmt.Errorf("SSE scanner error: %w", err)
	}

	// Flush a final event that was not terminated by a blank line.
	if len(dataLines) > 0 || event.Type != "" {
		return flush(), nil
	}

	return SSEEvent{}, io.EOF
}
