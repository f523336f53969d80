package logs

import (
	"io"
	"log"
	"os"
	"strings"
)

// 定义日志级别常量（数值越大，级别越高）
const (
	LevelTrace   = iota // 0（最低，最详细）
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5（最高，最严重）
)

var logLevel = LevelInfo // 全局日志级别

// 全局 Logger 实例
var logger *Logger

// Logger 结构体
type Logger struct {
	traceLogger   *log.Logger
	debugLogger   *log.Logger
	verboseLogger *log.Logger
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
}

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

func newLogger(out, errOut io.Writer) *Logger {
	return &Logger{
		traceLogger:   log.New(out, "[TRACE]   ", logFlags),
		debugLogger:   log.New(out, "[DEBUG]   ", logFlags),
		verboseLogger: log.New(out, "[VERBOSE] ", logFlags),
		infoLogger:    log.New(out, "[INFO]    ", logFlags),
		warnLogger:    log.New(out, "[WARN]    ", logFlags),
		errorLogger:   log.New(errOut, "[ERROR]   ", logFlags),
	}
}

// 初始化全局 Logger 实例
func init() {
	logger = newLogger(os.Stdout, os.Stderr)
}

// SetLevel 设置全局日志级别
func SetLevel(level int) {
	if level < LevelTrace {
		level = LevelTrace
	}
	if level > LevelError {
		level = LevelError
	}
	logLevel = level
}

// GetLevel 当前日志级别
func GetLevel() int {
	return logLevel
}

// ParseLevel 把配置里的字符串级别转成常量，未知值回落到 info
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput 重定向所有级别的输出（测试里用来静音）
func SetOutput(w io.Writer) {
	logger = newLogger(w, w)
}

// 包级别的日志方法
func Trace(format string, v ...interface{}) {
	if logLevel <= LevelTrace {
		logger.traceLogger.Printf(format, v...)
	}
}

func Debug(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		logger.debugLogger.Printf(format, v...)
	}
}

func Verbose(format string, v ...interface{}) {
	if logLevel <= LevelVerbose {
		logger.verboseLogger.Printf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		logger.infoLogger.Printf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if logLevel <= LevelWarning {
		logger.warnLogger.Printf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if logLevel <= LevelError {
		logger.errorLogger.Printf(format, v...)
	}
}
