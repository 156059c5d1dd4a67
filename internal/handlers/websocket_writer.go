package handlers

import (
	"strings"
	"sync"
	"time"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/scimdash/internal/common"
)

const (
	// Default buffer size for the log channel
	defaultWebSocketBufferSize = 1000

	logChannelName = "context"
)

var defaultExcludePatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"HTTP response",
	"Publishing event",
}

// LogEntry is the payload of a "log" message
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// SendLog broadcasts a single log line to all clients
func (h *WebSocketHandler) SendLog(level, message string) {
	h.BroadcastLog(LogEntry{
		Timestamp: time.Now().Format("15:04:05"),
		Level:     strings.ToLower(level),
		Message:   message,
	})
}

// BroadcastLog sends a log entry to all clients. Failures are not logged.
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.broadcast(WSMessage{Type: "log", Payload: entry}, false)
}

// LogStreamer receives arbor log batches on a channel and forwards them as "log" messages
type LogStreamer struct {
	handler         *WebSocketHandler
	channel         chan []arbormodels.LogEvent
	minLevel        levels.LogLevel
	excludePatterns []string
	done            chan struct{}
	once            sync.Once
}

// NewLogStreamer creates a streamer filtered by the configured level and exclude patterns
func NewLogStreamer(handler *WebSocketHandler, wsConfig *common.WebSocketConfig) *LogStreamer {
	minLevel := levels.InfoLevel
	excludePatterns := defaultExcludePatterns
	if wsConfig != nil {
		minLevel = parseLogLevel(wsConfig.MinLevel)
		if len(wsConfig.ExcludePatterns) > 0 {
			excludePatterns = wsConfig.ExcludePatterns
		}
	}

	return &LogStreamer{
		handler:         handler,
		channel:         make(chan []arbormodels.LogEvent, defaultWebSocketBufferSize),
		minLevel:        minLevel,
		excludePatterns: excludePatterns,
		done:            make(chan struct{}),
	}
}

// Attach routes the logger's output into the streamer and starts forwarding
func (s *LogStreamer) Attach(logger arbor.ILogger) {
	logger.SetChannel(logChannelName, s.channel)
	go s.run()
}

func (s *LogStreamer) run() {
	for {
		select {
		case <-s.done:
			return
		case batch, ok := <-s.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				if entry, ok := s.filter(event); ok {
					s.handler.BroadcastLog(entry)
				}
			}
		}
	}
}

// filter converts an event to a LogEntry, reporting false for events below the minimum
// level or matching an exclude pattern
func (s *LogStreamer) filter(event arbormodels.LogEvent) (LogEntry, bool) {
	arborLevel := plogToArborLevel(event.Level)
	if arborLevel < s.minLevel {
		return LogEntry{}, false
	}

	for _, pattern := range s.excludePatterns {
		if strings.Contains(event.Message, pattern) {
			return LogEntry{}, false
		}
	}

	return LogEntry{
		Timestamp: event.Timestamp.Format("15:04:05"),
		Level:     mapLevel(arborLevel),
		Message:   event.Message,
	}, true
}

// Stop ends forwarding. Buffered batches are dropped.
func (s *LogStreamer) Stop() {
	s.once.Do(func() { close(s.done) })
}

// plogToArborLevel converts phuslu/log.Level to arbor levels.LogLevel
func plogToArborLevel(level plog.Level) levels.LogLevel {
	switch level {
	case plog.ErrorLevel, plog.FatalLevel, plog.PanicLevel:
		return levels.ErrorLevel
	case plog.WarnLevel:
		return levels.WarnLevel
	case plog.InfoLevel:
		return levels.InfoLevel
	case plog.DebugLevel, plog.TraceLevel:
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// parseLogLevel converts string log level to arbor levels.LogLevel
func parseLogLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return levels.ErrorLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "info":
		return levels.InfoLevel
	case "debug":
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// mapLevel maps arbor log levels to UI strings
func mapLevel(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.InfoLevel:
		return "info"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
