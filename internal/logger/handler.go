package logger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
)

// runIDKey is printed as a short prefix instead of a key=value pair, so the
// lines of concurrent syncs can be told apart at a glance.
const (
	runIDKey    = "run_id"
	runIDPrefix = 8
)

var (
	errorColor    = color.New(color.FgRed)
	locationColor = color.New(color.FgBlue)
	itemColor     = color.New(color.FgCyan)
	countColor    = color.New(color.FgGreen)
	plainColor    = color.New(color.FgHiBlack)

	// keyColors groups the attribute keys the pipeline logs: where data
	// comes from or goes to, which work item it concerns, and how much of it.
	keyColors = map[string]*color.Color{
		"error": errorColor,

		"repository": locationColor,
		"platform":   locationColor,
		"base":       locationColor,
		"head":       locationColor,
		"sheet":      locationColor,
		"path":       locationColor,

		"work_item": itemColor,
		"issue":     itemColor,
		"id":        itemColor,
		"key":       itemColor,
		"team":      itemColor,
		"rule":      itemColor,

		"count":               countColor,
		"total":               countColor,
		"records":             countColor,
		"rows":                countColor,
		"commits":             countColor,
		"updated":             countColor,
		"inserted":            countColor,
		"unchanged":           countColor,
		"frozen":              countColor,
		"reordered":           countColor,
		"resolved":            countColor,
		"placeholder":         countColor,
		"unresolved":          countColor,
		"dropped":             countColor,
		"failed_repositories": countColor,
	}
)

// PrettyHandler prints one colored line per record for a terminal:
// level, run id, message, attributes and, in debug mode, the call site.
type PrettyHandler struct {
	opts   *slog.HandlerOptions
	w      io.Writer
	runID  string
	attrs  []slog.Attr
	groups []string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: opts, w: w}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelWarn
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(formatLevel(r.Level))
	buf.WriteString(" ")
	if h.runID != "" {
		buf.WriteString(color.MagentaString("%s", shortRunID(h.runID)))
		buf.WriteString(" ")
	}
	buf.WriteString(r.Message)

	fields := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, h.formatAttr(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.formatAttr(h.qualify(a)))
		return true
	})
	if len(fields) > 0 {
		buf.WriteString(" ")
		buf.WriteString(strings.Join(fields, " "))
	}

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			buf.WriteString(" ")
			buf.WriteString(color.HiBlackString("(%s:%d)", filepath.Base(frame.File), frame.Line))
		}
	}

	buf.WriteString("\n")
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == runIDKey && len(h.groups) == 0 {
			next.runID = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		opts:   h.opts,
		w:      h.w,
		runID:  h.runID,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// qualify prefixes the key with the open groups. Attributes bound through
// WithAttrs keep the groups open at that time.
func (h *PrettyHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

func (h *PrettyHandler) formatAttr(a slog.Attr) string {
	val := a.Value.Resolve()
	text := val.String()
	if val.Kind() == slog.KindTime {
		text = val.Time().UTC().Format(time.RFC3339)
	}

	base := a.Key
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	c, ok := keyColors[base]
	if !ok {
		c = plainColor
	}
	return c.Sprintf("%s=%s", a.Key, text)
}

func formatLevel(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return color.HiBlackString("[DEBUG]")
	case slog.LevelInfo:
		return color.CyanString("[INFO] ")
	case slog.LevelWarn:
		return color.YellowString("[WARN] ")
	case slog.LevelError:
		return color.RedString("[ERROR]")
	}
	return "[" + level.String() + "]"
}

func shortRunID(id string) string {
	if len(id) > runIDPrefix {
		return id[:runIDPrefix]
	}
	return id
}
