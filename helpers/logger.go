package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/retroconsolas/logger"
)

// LoggerInterface records degraded consoles and queries
type LoggerInterface interface {
	LogError(scope string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends degradations to an error journal file and mirrors them to
// the structured log
type Logger struct {
	mu        sync.Mutex
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to the journal with its scope and a timestamp
func (l *Logger) LogError(scope string, err error) {
	logger.ForWorker().WithError(err).Warn().Str("scope", scope).Msg("Degraded")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("Failed to open error journal %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, scope, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
