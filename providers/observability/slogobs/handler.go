package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Handler renders slog records in one of the three [Format] layouts. It is
// safe for concurrent use; a single mutex serialises writes to the output.
type Handler struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	mu     sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a [Handler].
type HandlerOptions struct {
	Format Format
	// Level is the minimum level written; records below it are dropped.
	Level slog.Level
	// Output defaults to os.Stdout.
	Output io.Writer
	// Colors enables ANSI codes for the compact and pretty layouts. When
	// unset, colors switch on automatically if Output is a terminal.
	Colors bool
}

// NewHandler builds a Handler, filling defaults for unset options.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}

	colors := opts.Colors
	if !colors && format != FormatJSON {
		if file, ok := output.(*os.File); ok {
			colors = isTerminal(file)
		}
	}

	return &Handler{
		format: format,
		level:  opts.Level,
		output: output,
		colors: colors,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.format {
	case FormatPretty:
		return h.writePretty(record)
	case FormatJSON:
		return h.writeJSON(record)
	default:
		return h.writeCompact(record)
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *Handler) clone() *Handler {
	return &Handler{
		format: h.format,
		level:  h.level,
		output: h.output,
		colors: h.colors,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// writeCompact renders one line per record:
//
//	2006-01-02 15:04:05  INFO message → {"key":"value"}
func (h *Handler) writeCompact(record slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(record.Time.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	h.writeLevel(&buf, record.Level, true)
	buf.WriteByte(' ')
	buf.WriteString(record.Message)

	if attrs := h.collectAttrs(record); len(attrs) > 0 {
		buf.WriteString(" → ")
		encoded, err := json.Marshal(attrs)
		if err != nil {
			buf.WriteString("[json-error]")
		} else {
			buf.Write(encoded)
		}
	}

	buf.WriteByte('\n')
	_, err := h.output.Write(buf.Bytes())
	return err
}

// writePretty renders the message line followed by one tree-indented line
// per attribute, in sorted key order so the output is stable.
func (h *Handler) writePretty(record slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(record.Time.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	buf.WriteString(emojiForLevel(record.Level))
	buf.WriteByte(' ')
	h.writeLevel(&buf, record.Level, false)
	buf.WriteString(strings.Repeat(" ", 7-len(levelString(record.Level))))
	buf.WriteString(record.Message)
	buf.WriteByte('\n')

	attrs := h.collectAttrs(record)
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		if i == len(keys)-1 {
			buf.WriteString("                   └─ ")
		} else {
			buf.WriteString("                   ├─ ")
		}
		fmt.Fprintf(&buf, "%s: %v\n", key, attrs[key])
	}

	_, err := h.output.Write(buf.Bytes())
	return err
}

// writeJSON renders one JSON object per line, merging attributes into the
// top level next to time, level and msg.
func (h *Handler) writeJSON(record slog.Record) error {
	fields := map[string]any{
		"time":  record.Time.Format("2006-01-02T15:04:05"),
		"level": levelString(record.Level),
		"msg":   record.Message,
	}
	for key, value := range h.collectAttrs(record) {
		fields[key] = value
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	_, err = h.output.Write(encoded)
	return err
}

func (h *Handler) writeLevel(buf *bytes.Buffer, level slog.Level, padded bool) {
	label := levelString(level)
	if padded {
		label = fmt.Sprintf("%5s", label)
	}
	if h.colors {
		buf.WriteString(colorForLevel(level))
		buf.WriteString(label)
		buf.WriteString(colorReset)
		return
	}
	buf.WriteString(label)
}

// collectAttrs merges the handler's bound attributes with the record's,
// prefixing keys with the open group path.
func (h *Handler) collectAttrs(record slog.Record) map[string]any {
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[prefix+attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[prefix+attr.Key] = attr.Value.Any()
		return true
	})
	return attrs
}

// levelString maps slog levels to labels, with everything below Debug
// reported as TRACE.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

func emojiForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "🔍"
	case level < slog.LevelInfo:
		return "🔵"
	case level < slog.LevelWarn:
		return "🟢"
	case level < slog.LevelError:
		return "🟡"
	default:
		return "🔴"
	}
}

func isTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
