package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the global logger. level is one of debug, info, warning
// or error; unknown values fall back to warning.
func Init(level string, isService bool) {
	InitWithWriter(os.Stdout, level, isService)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(out io.Writer, level string, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.NoColor = true
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(ParseLevel(level))
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "error":
		return ErrorLevel
	default:
		return WarnLevel
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// componentLogger tags every event with a set of string fields. Events are
// built against the global logger at call time so Init applies to loggers
// created before it.
type componentLogger struct {
	fields [][2]string
	nop    bool
}

// New returns a Logger that adds a "component" field to every event.
func New(component string) Logger {
	return &componentLogger{fields: [][2]string{{"component", component}}}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &componentLogger{nop: true}
}

func (l *componentLogger) event(e *zerolog.Event) *LogEvent {
	if l.nop {
		// a disabled event from a no-op logger is safe to chain on
		nop := zerolog.Nop()
		return &LogEvent{nop.Debug()}
	}
	for _, f := range l.fields {
		e = e.Str(f[0], f[1])
	}

	return &LogEvent{e}
}

func (l *componentLogger) Debug() *LogEvent { return l.event(log.Debug()) }
func (l *componentLogger) Info() *LogEvent  { return l.event(log.Info()) }
func (l *componentLogger) Warn() *LogEvent  { return l.event(log.Warn()) }
func (l *componentLogger) Error() *LogEvent { return l.event(log.Error()) }

func (l *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	ev := l.event(log.Error())
	if l.nop {
		return ev
	}

	return withCode(ev.Event, err)
}

func (l *componentLogger) With(key, value string) Logger {
	fields := make([][2]string, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)

	return &componentLogger{fields: append(fields, [2]string{key, value}), nop: l.nop}
}
