// Package logger builds the zerolog.Logger shared by the catalog components.
//
//	logData, err := logger.New().Level("info").ToPath("/var/log/catalog.log").Make()
//	if err != nil {
//		return err
//	}
//	defer logData.Close()
//	log := logData.Logger.With().Str("component", "sync").Logger()
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file output, in megabytes and days.
const (
	maxSizeMB  = 64
	maxBackups = 7
	maxAgeDays = 7
)

type LogBuild struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

type LogData struct {
	writer  io.Writer
	LogFile *lumberjack.Logger
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{}
}

// ToPath sends output to a rotating file at path in addition to the other
// configured sinks.
func (build *LogBuild) ToPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// Level sets the minimum level by name. Unknown names fall back to info.
func (build *LogBuild) Level(level string) *LogBuild {
	build.level = level
	return build
}

// Console switches stdout output to zerolog's human readable format.
func (build *LogBuild) Console(enabled bool) *LogBuild {
	build.console = enabled
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)

	var writers []io.Writer
	switch {
	case build.writer != nil:
		writers = append(writers, build.writer)
	case build.console:
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
	default:
		writers = append(writers, os.Stdout)
	}
	if build.path != "" {
		logData.LogFile = &lumberjack.Logger{
			Filename:   build.path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		writers = append(writers, zerolog.SyncWriter(logData.LogFile))
	}

	if len(writers) == 1 {
		logData.writer = writers[0]
	} else {
		logData.writer = zerolog.MultiLevelWriter(writers...)
	}

	logData.Logger = zerolog.New(logData.writer).
		Level(ParseLevel(build.level)).
		With().Timestamp().Logger()
	return
}

// Close releases the log file, if any.
func (l *LogData) Close() error {
	if l.LogFile == nil {
		return nil
	}
	return l.LogFile.Close()
}

func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
