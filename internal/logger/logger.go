package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

const maxLogSize = 10 * 1024 * 1024

var (
	logFile *os.File
	logPath string
)

// Init 初始化日志输出，path 为空时写到 stderr
func Init(path string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if path == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// 超过 10MB 时滚动
	if info, err := f.Stat(); err == nil && info.Size() > maxLogSize {
		_ = f.Close()
		_ = os.Rename(path, fmt.Sprintf("%s.%d", path, time.Now().Unix()))
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create new log file: %w", err)
		}
	}

	logFile = f
	logPath = path
	log.SetOutput(f)

	LogInfo("Logger initialized, log file: %s", logPath)
	return nil
}

// Close 关闭日志文件
func Close() {
	if logFile != nil {
		log.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
}

// LogInfo logs an info message
func LogInfo(format string, args ...any) {
	_ = log.Output(2, fmt.Sprintf("[INFO] "+format, args...))
}

// LogWarn logs a warning
func LogWarn(format string, args ...any) {
	_ = log.Output(2, fmt.Sprintf("[WARN] "+format, args...))
}

// LogError logs an error message
func LogError(format string, args ...any) {
	_ = log.Output(2, fmt.Sprintf("[ERROR] "+format, args...))
}

// LogPanic logs a recovered panic with stack trace
func LogPanic(r any) {
	_ = log.Output(2, fmt.Sprintf("[PANIC] %v\n%s", r, debug.Stack()))
}

// LogFatal logs and terminates the process
func LogFatal(format string, args ...any) {
	_ = log.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	Close()
	os.Exit(1)
}

// GetLogPath returns the current log file path
func GetLogPath() string {
	return logPath
}
