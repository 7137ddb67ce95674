package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"
)

// PrettyHandler is a slog.Handler that produces human-readable, colored output.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a new PrettyHandler writing to the provided writer.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		out:   newOutput(w),
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var msg string
	var color termenv.Color

	switch {
	case r.Level >= slog.LevelError:
		msg = iconCross + " " + r.Message
		color = termenv.RGBColor(string(colorRed))
	case r.Level >= slog.LevelWarn:
		msg = iconWarning + " " + r.Message
		color = termenv.RGBColor(string(colorYellow))
	case r.Level < slog.LevelInfo:
		msg = iconDot + " " + r.Message
		color = termenv.RGBColor(string(colorDim))
	case strings.HasPrefix(r.Message, iconCheck):
		msg = r.Message
		color = termenv.RGBColor(string(colorGreen))
	default:
		msg = r.Message
		color = termenv.RGBColor(string(colorMuted))
	}

	attrParts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		attrParts = append(attrParts, formatAttr(h.group, attr))
	}
	r.Attrs(func(attr slog.Attr) bool {
		attrParts = append(attrParts, formatAttr(h.group, attr))
		return true
	})
	if len(attrParts) > 0 {
		msg += " " + strings.Join(attrParts, " ")
	}

	styled := h.out.String(msg).Foreground(color)
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)

	return &PrettyHandler{out: h.out, level: h.level, attrs: newAttrs, group: h.group}
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{out: h.out, level: h.level, attrs: h.attrs, group: name}
}

func formatAttr(group string, attr slog.Attr) string {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	return key + "=" + attr.Value.String()
}

// teeHandler forwards each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = errors.Join(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errs
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
