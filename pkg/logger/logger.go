package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

// Logger wraps a zap.SugaredLogger, keeping the colored, bannered
// console texture the rest of the codebase calls through while letting
// zap own level filtering and the actual write.
type Logger struct {
	zap        *zap.SugaredLogger
	atom       zap.AtomicLevel
	timeFormat string
	showTime   bool
}

var defaultLogger *Logger

func init() {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), atom)
	defaultLogger = &Logger{
		zap:        zap.New(core).Sugar(),
		atom:       atom,
		timeFormat: "15:04:05",
		showTime:   true,
	}
}

// SetLevel sets the minimum log level; Success is treated as Info for
// filtering purposes since zap has no equivalent level.
func SetLevel(level int) {
	switch level {
	case LevelDebug:
		defaultLogger.atom.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		defaultLogger.atom.SetLevel(zapcore.WarnLevel)
	case LevelError:
		defaultLogger.atom.SetLevel(zapcore.ErrorLevel)
	default:
		defaultLogger.atom.SetLevel(zapcore.InfoLevel)
	}
}

// SetTimeFormat sets the time format used by the colored console line.
func SetTimeFormat(format string) {
	defaultLogger.timeFormat = format
}

// ShowTime enables or disables the timestamp prefix on colored lines.
func ShowTime(show bool) {
	defaultLogger.showTime = show
}

func (l *Logger) formatMessage(color, prefix, message string) string {
	timestamp := ""
	if l.showTime {
		timestamp = fmt.Sprintf("%s[%s]%s ", ColorGray, time.Now().Format(l.timeFormat), ColorReset)
	}
	return fmt.Sprintf("%s%s[%s]%s %s", timestamp, color, prefix, ColorReset, message)
}

// Debug logs a debug message (gray).
func Debug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Debug(defaultLogger.formatMessage(ColorGray, "DEBUG", msg))
}

// Info logs an informational message (white).
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Info(defaultLogger.formatMessage(ColorWhite, "INFO", msg))
}

// Warn logs a warning message (yellow).
func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Warn(defaultLogger.formatMessage(ColorYellow, "WARN", msg))
}

// Error logs an error message (red).
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Error(defaultLogger.formatMessage(ColorRed, "ERROR", msg))
}

// Success logs a success message (green).
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Info(defaultLogger.formatMessage(ColorGreen, "SUCCESS", msg))
}

// Fatal logs a fatal error and exits.
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Fatal(defaultLogger.formatMessage(ColorRed, "FATAL", msg))
}

// InfoCyan logs an info message in cyan, for connection/session
// highlights.
func InfoCyan(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.zap.Info(defaultLogger.formatMessage(ColorCyan, "INFO", msg))
}

// Section prints a section header directly to stdout, bypassing zap:
// it's decoration, not a log record worth a level or a timestamp.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██╗   ██╗███████╗██╗  ██╗                              ║
║   ██║   ██║██╔════╝╚██╗██╔╝                              ║
║   ██║   ██║█████╗   ╚███╔╝                               ║
║   ╚██╗ ██╔╝██╔══╝   ██╔██╗                               ║
║    ╚████╔╝ ███████╗██╔╝ ██╗                              ║
║     ╚═══╝  ╚══════╝╚═╝  ╚═╝                              ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
