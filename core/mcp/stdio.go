package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// maxLineSize bounds one newline-delimited JSON-RPC message (4 MB). Tool
// results can carry large payloads.
const maxLineSize = 4 * 1024 * 1024

// StdioTransport runs an MCP server as a subprocess and speaks
// newline-delimited JSON over its stdin and stdout. The server's stderr is
// inherited so its diagnostics reach the parent's stderr.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	inbox  chan []byte
	writeM sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewStdioTransport spawns command with args and attaches to its pipes. The
// returned transport is ready for use; Close kills the subprocess.
func NewStdioTransport(command string, args ...string) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp stdio: opening stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp stdio: opening stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp stdio: starting %q: %w", command, err)
	}

	transport := &StdioTransport{
		cmd:   cmd,
		stdin: stdin,
		inbox: make(chan []byte, 16),
	}
	go transport.readLoop(stdout)

	return transport, nil
}

func (t *StdioTransport) readLoop(stdout io.Reader) {
	defer close(t.inbox)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload := make([]byte, len(line))
		copy(payload, line)
		t.inbox <- payload
	}
}

// Send writes one message followed by a newline.
func (t *StdioTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeM.Lock()
	defer t.writeM.Unlock()

	if _, err := t.stdin.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("mcp stdio: writing message: %w", err)
	}
	return nil
}

// Messages returns the inbound message channel.
func (t *StdioTransport) Messages() <-chan []byte { return t.inbox }

// Close terminates the subprocess. Closing stdin first gives well-behaved
// servers a chance to exit on their own.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.stdin.Close()
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		t.closeErr = t.cmd.Wait()
	})
	return t.closeErr
}
