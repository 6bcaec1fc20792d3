package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// Wrap exposes l as a *slog.Logger for libraries that log through slog.
// Records are dropped when filter returns false.
func Wrap(l Log, filter func(name string, r slog.Record) bool) *slog.Logger {
	h, ok := l.(*levelLogger)
	if !ok {
		return slog.Default()
	}
	clone := *h
	clone.filter = filter
	return slog.New(&clone)
}

func (l *levelLogger) Enabled(ctx context.Context, level slog.Level) bool {
	switch {
	case level < slog.LevelInfo:
		return l.DebugEnabled()
	case level < slog.LevelWarn:
		return l.InfoEnabled()
	case level < slog.LevelError:
		return l.WarnEnabled()
	default:
		return l.ErrorEnabled()
	}
}

func (l *levelLogger) Handle(ctx context.Context, r slog.Record) error {
	var lvl Level
	switch {
	case r.Level < slog.LevelInfo:
		lvl = LevelDebug
	case r.Level < slog.LevelWarn:
		lvl = LevelInfo
	case r.Level < slog.LevelError:
		lvl = LevelWarn
	default:
		lvl = LevelError
	}
	if l.filter != nil && !l.filter(l.name, r) {
		return nil
	}
	args := []any{r.Message}
	r.Attrs(func(a slog.Attr) bool {
		args = append(args, fmt.Sprintf("%v=%v", a.Key, a.Value))
		return true
	})
	l._log(lvl, 2, args)
	return nil
}

func (l *levelLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *l
	ret.attrs = append(append([]slog.Attr{}, l.attrs...), attrs...)
	return &ret
}

// WithGroup switches to the logger named after the group.
func (l *levelLogger) WithGroup(name string) slog.Handler {
	if name == "" {
		return l
	}
	if r, ok := GetLog(name).(*levelLogger); ok {
		r.filter = l.filter
		return r
	}
	return l
}
