package httpx

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// JSONLScanner reads newline-delimited JSON objects, the framing Google's
// streamGenerateContent endpoint uses instead of SSE. Google wraps the
// stream in a JSON array split across lines, so leading "[" and ","
// characters and the closing "]" line are stripped before each line is
// returned.
type JSONLScanner struct {
	scanner *bufio.Scanner
}

// NewJSONLScanner creates a JSONLScanner reading from the given reader.
func NewJSONLScanner(reader io.Reader) *JSONLScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &JSONLScanner{scanner: scanner}
}

// Next returns the next JSON object as a string, or io.EOF when the stream
// ends.
func (s *JSONLScanner) Next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())

		// Strip array framing.
		line = strings.TrimPrefix(line, "[")
		line = strings.TrimPrefix(line, ",")
		if line == "" || line == "]" {
			continue
		}

		return line, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("JSONL scanner error: %w", err)
	}
	return "", io.EOF
}
