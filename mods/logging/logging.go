package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/robfig/cron/v3"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

/*
	Log rotation schedule

	"0 30 * * * *"             Every hour on the half hour
	"@hourly"                  Every hour
	"@every 1h30m"             Every hour thirty
	"@midnight"                Every day
*/

type Config struct {
	Console              bool          `hcl:"console"`
	Filename             string        `hcl:"filename"`
	Append               bool          `hcl:"append"`
	RotateSchedule       string        `hcl:"rotate_schedule"`
	MaxSize              int           `hcl:"max_size"`
	MaxBackups           int           `hcl:"max_backups"`
	MaxAge               int           `hcl:"max_age"`
	Compress             bool          `hcl:"compress"`
	Levels               []LevelConfig `hcl:"levels"`
	UTC                  bool          `hcl:"utc"`
	PrefixWidth          int           `hcl:"prefix_width"`
	EnableSourceLocation bool          `hcl:"source_location"`
	DefaultLevel         string        `hcl:"default_level"`
}

type LevelConfig struct {
	Pattern string `hcl:"pattern"`
	Level   string `hcl:"level"`
}

// DefaultConfig writes INFO and above to stdout.
func DefaultConfig() Config {
	return Config{
		Console:        false,
		Filename:       "-",
		Append:         true,
		RotateSchedule: "@midnight",
		MaxSize:        10,
		MaxBackups:     1,
		MaxAge:         7,
		PrefixWidth:    18,
		DefaultLevel:   "INFO",
	}
}

var PresetConfigDiscard = Config{
	Filename:     ".",
	PrefixWidth:  18,
	DefaultLevel: "ERROR",
}

var (
	rotateCron     *cron.Cron
	defaultWriter  = []*logWriter{consoleWriter()}
	configureMutex sync.Mutex
)

// Configure replaces the writers and levels of loggers created afterwards.
// The returned closer stops the rotation schedule and closes the log file.
func Configure(cfg *Config) io.Closer {
	configureMutex.Lock()
	defer configureMutex.Unlock()

	levelMutex.Lock()
	levelConfig = make(map[string]Level)
	for _, c := range cfg.Levels {
		levelConfig[c.Pattern] = ParseLogLevel(c.Level)
	}
	levelMutex.Unlock()

	SetDefaultPrefixWidth(cfg.PrefixWidth)
	SetDefaultLevel(ParseLogLevel(cfg.DefaultLevel))
	SetDefaultEnableSourceLocation(cfg.EnableSourceLocation)

	if rotateCron != nil {
		rotateCron.Stop()
		rotateCron = nil
	}

	switch cfg.Filename {
	case ".":
		defaultWriter = []*logWriter{}
		return nopCloser{}
	case "", "-":
		defaultWriter = []*logWriter{consoleWriter()}
		return nopCloser{}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  !cfg.UTC,
	}
	if !cfg.Append {
		lj.Rotate()
	}
	if len(cfg.RotateSchedule) > 0 {
		rotateCron = cron.New()
		if _, err := rotateCron.AddFunc(cfg.RotateSchedule, func() { lj.Rotate() }); err == nil {
			rotateCron.Start()
		} else {
			fmt.Fprintf(os.Stderr, "ERR logger rotate schedule %s\n", err.Error())
			rotateCron = nil
		}
	}
	if cfg.Console {
		defaultWriter = []*logWriter{
			{Writer: lj, isTerm: false},
			consoleWriter(),
		}
	} else {
		defaultWriter = []*logWriter{{Writer: lj, isTerm: false}}
	}
	return &fileCloser{lj: lj, cron: rotateCron}
}

func GetLog(name string) Log {
	return &levelLogger{
		name:         name,
		level:        GetLevel(name),
		underlying:   defaultWriter,
		prefixWidth:  prefixWidthDefault,
		enableSrcLoc: enableSourceLocationDefault,
	}
}

// NewLog returns a logger that writes plain lines to writer.
func NewLog(name string, writer io.Writer) Log {
	return &levelLogger{
		name:         name,
		level:        GetLevel(name),
		underlying:   []*logWriter{{Writer: writer, isTerm: false}},
		prefixWidth:  prefixWidthDefault,
		enableSrcLoc: enableSourceLocationDefault,
	}
}

type logWriter struct {
	io.Writer
	isTerm bool
}

// consoleWriter colors its output only when stdout is a terminal.
func consoleWriter() *logWriter {
	return &logWriter{
		Writer: colorable.NewColorableStdout(),
		isTerm: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type fileCloser struct {
	lj   *lumberjack.Logger
	cron *cron.Cron
}

func (fc *fileCloser) Close() error {
	if fc.cron != nil {
		fc.cron.Stop()
	}
	return fc.lj.Close()
}
