// Package logging routes the standard logger to the geoassist log file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init points the standard logger at logPath (created with parent directories)
// and, when echo is true, at stderr as well. With neither a path nor echo the
// log output is discarded.
func Init(logPath string, echo bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	if echo {
		writers = append(writers, os.Stderr)
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return nil
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// Warnf logs a recoverable condition with a [WARN] prefix.
func Warnf(format string, args ...any) {
	log.Println("[WARN] " + fmt.Sprintf(format, args...))
}

// LogQuery records one answered query: which front end asked, the resolved
// intent, the raw query text and a summary payload.
func LogQuery(frontend, intent, query string, payload any) {
	log.Println(buildQueryMessage(frontend, intent, query, payload))
}

func buildQueryMessage(frontend, intent, query string, payload any) string {
	src := strings.TrimSpace(frontend)
	if src == "" {
		src = "query"
	}
	intentValue := strings.TrimSpace(intent)
	if intentValue == "" {
		intentValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", strings.ToUpper(src))}
	parts = append(parts, fmt.Sprintf("intent=%s", intentValue))
	parts = append(parts, fmt.Sprintf("query=%q", strings.TrimSpace(query)))
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
