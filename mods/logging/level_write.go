package logging

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	yellow = "\033[90;43m"
	red    = "\033[97;41m"
	reset  = "\033[0m"
)

const timeFormat = "2006/01/02 15:04:05.000"

// Write makes a Log usable as the output of other loggers, gin for example.
func (l *levelLogger) Write(buff []byte) (n int, err error) {
	ts := fmt.Sprintf("%s -     ", time.Now().Format(timeFormat))
	for _, w := range l.underlying {
		w.Write([]byte(ts))
		n, err = w.Write(buff)
	}
	return
}

func (l *levelLogger) _log(lvl Level, callstackOffset int, args []any) {
	l._logf(lvl, callstackOffset+1, "", args)
}

func (l *levelLogger) _logf(lvl Level, callstackOffset int, format string, args []any) {
	if lvl < l.level || lvl >= LevelNone {
		return
	}

	totalCounter.Inc(1)
	switch lvl {
	case LevelWarn:
		warnCounter.Inc(1)
	case LevelError:
		errorCounter.Inc(1)
	}

	var name string
	if l.enableSrcLoc {
		_, srcFileName, srcFileLine, _ := runtime.Caller(2 + callstackOffset)
		srcFileName = filepath.Base(srcFileName)
		width := l.prefixWidth - len(srcFileName) - 5
		if width <= 0 {
			width = 1
		}
		name = fmt.Sprintf("%-*s %s %3d", width, l.name, srcFileName, srcFileLine)
	} else {
		name = fmt.Sprintf("%-*s", l.prefixWidth, l.name)
	}

	var msg string
	if format == "" {
		toks := make([]string, 0, len(args)+len(l.attrs))
		for _, a := range args {
			if s, ok := a.(string); ok {
				toks = append(toks, s)
			} else {
				toks = append(toks, fmt.Sprintf("%v", a))
			}
		}
		for _, a := range l.attrs {
			toks = append(toks, fmt.Sprintf("%s=%v", a.Key, a.Value))
		}
		msg = strings.Join(toks, " ")
	} else {
		msg = fmt.Sprintf(format, args...)
	}

	colorBegin, colorEnd := "", ""
	switch lvl {
	case LevelWarn:
		colorBegin, colorEnd = yellow, reset
	case LevelError:
		colorBegin, colorEnd = red, reset
	}
	timestamp := time.Now().Format(timeFormat)
	levelName := fmt.Sprintf("%-5s", logLevelNames[lvl])

	for _, w := range l.underlying {
		var line string
		if w.isTerm {
			line = fmt.Sprintf("%s %s%s%s %s %s\n", timestamp, colorBegin, levelName, colorEnd, name, msg)
		} else {
			line = fmt.Sprintf("%s %s %s %s\n", timestamp, levelName, name, removeEscape(msg))
		}
		w.Write([]byte(line))
	}
}

func removeEscape(str string) string {
	for {
		idx := strings.Index(str, "\033[")
		if idx == -1 {
			break
		}
		period := strings.Index(str[idx:], "m")
		if period < 0 {
			break
		}
		str = str[0:idx] + str[idx+period+1:]
	}
	return str
}
