// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a config or flag value into a LogLevel.
// An empty string maps to INFO.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

type Logger struct {
	console       [4]*log.Logger
	plain         [4]*log.Logger
	file          *os.File
	consoleOutput io.Writer
	fileOutput    io.Writer
	minLevel      LogLevel
}

var (
	defaultLogger *Logger
	mu            sync.Mutex
)

var prefixes = [4]string{"[DEBUG] ", "[INFO]  ", "[WARN]  ", "[ERROR] "}

var prefixColors = [4]*color.Color{
	color.New(color.FgHiBlack),
	color.New(color.Reset),
	color.New(color.FgYellow),
	color.New(color.FgRed),
}

// ensureInitialized creates a default logger if one doesn't exist.
// Callers must hold mu.
func ensureInitialized() {
	if defaultLogger != nil {
		return
	}
	defaultLogger = &Logger{
		consoleOutput: os.Stderr,
		minLevel:      INFO,
	}
	defaultLogger.setupLoggers()
}

// Init initializes the logger with optional file and console output
// If filename is empty, logs only to console
// If console is false, logs only to file
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := INFO
	if defaultLogger != nil {
		level = defaultLogger.minLevel
		if defaultLogger.file != nil {
			defaultLogger.file.Close()
		}
	}

	next := &Logger{minLevel: level}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		next.file = file
		next.fileOutput = file
	}

	if console {
		next.consoleOutput = os.Stderr
	}

	if next.fileOutput == nil && next.consoleOutput == nil {
		return fmt.Errorf("no output destination specified")
	}

	next.setupLoggers()
	defaultLogger = next
	return nil
}

// SetOutput redirects console output to w without colors. Used by tests and
// by callers that capture logs.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	ensureInitialized()
	defaultLogger.consoleOutput = nil
	defaultLogger.fileOutput = w
	defaultLogger.setupLoggers()
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
// Messages below this level will not be logged
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	ensureInitialized()
	defaultLogger.minLevel = level
}

// Level returns the current minimum level.
func Level() LogLevel {
	mu.Lock()
	defer mu.Unlock()
	ensureInitialized()
	return defaultLogger.minLevel
}

func (l *Logger) setupLoggers() {
	flags := log.Ldate | log.Ltime | log.Lshortfile

	for lvl := DEBUG; lvl <= ERROR; lvl++ {
		l.console[lvl], l.plain[lvl] = nil, nil
		if l.consoleOutput != nil {
			l.console[lvl] = log.New(l.consoleOutput, prefixColors[lvl].Sprint(prefixes[lvl]), flags)
		}
		if l.fileOutput != nil {
			l.plain[lvl] = log.New(l.fileOutput, prefixes[lvl], flags)
		}
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.fileOutput = nil
		defaultLogger.setupLoggers()
	}
}

func output(level LogLevel, msg string) {
	mu.Lock()
	ensureInitialized()
	l := defaultLogger
	mu.Unlock()

	if level < l.minLevel {
		return
	}
	if c := l.console[level]; c != nil {
		c.Output(3, msg)
	}
	if p := l.plain[level]; p != nil {
		p.Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
