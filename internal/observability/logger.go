package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRunStart      EventType = "run_start"
	EventTypeRunComplete   EventType = "run_complete"
	EventTypeStageStart    EventType = "stage_start"
	EventTypeStageComplete EventType = "stage_complete"
	EventTypeToolCall      EventType = "tool_call"
	EventTypeCost          EventType = "cost"
	EventTypeValidation    EventType = "validation"
	EventTypeConsistency   EventType = "consistency"
	EventTypePolicyCheck   EventType = "policy_check"
	EventTypeHeartbeat     EventType = "heartbeat"
	EventTypeLLM           EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger writes structured JSON events. LLM events are also appended to a
// size-rotated JSONL file when a path is configured.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger(out io.Writer, llmLogPath string, maxSizeMB int) *Logger {
	if out == nil {
		out = os.Stdout
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Logger{
		out:        out,
		llmLogPath: llmLogPath,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
	}
}

// Discard returns a logger that drops every event.
func Discard() *Logger {
	return NewLogger(io.Discard, "", 0)
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"error\": %q}", "failed to marshal event: "+err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// rotateLogs keeps a single .old generation.
func (l *Logger) rotateLogs() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogRunStart(runID string, stages []string) {
	l.Log(Event{
		Type:  EventTypeRunStart,
		RunID: runID,
		Data:  map[string]any{"stages": stages},
	})
}

func (l *Logger) LogRunComplete(runID string, status string, elapsed time.Duration, err error) {
	data := map[string]any{
		"status":     status,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeRunComplete, RunID: runID, Data: data})
}

func (l *Logger) LogStageStart(runID, stage, agent string) {
	l.Log(Event{
		Type:  EventTypeStageStart,
		RunID: runID,
		Stage: stage,
		Data:  map[string]string{"agent": agent},
	})
}

func (l *Logger) LogStageComplete(runID, stage string, elapsed time.Duration, outputChars int) {
	l.Log(Event{
		Type:  EventTypeStageComplete,
		RunID: runID,
		Stage: stage,
		Data: map[string]any{
			"elapsed_ms":   elapsed.Milliseconds(),
			"output_chars": outputChars,
		},
	})
}

func (l *Logger) LogToolCall(runID, stage, tool, args string) {
	l.Log(Event{
		Type:  EventTypeToolCall,
		RunID: runID,
		Stage: stage,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogCost(runID, stage string, promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type:  EventTypeCost,
		RunID: runID,
		Stage: stage,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"model":             model,
		},
	})
}

func (l *Logger) LogValidation(runID, stage, schema string, err error) {
	data := map[string]any{"schema": schema, "valid": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeValidation, RunID: runID, Stage: stage, Data: data})
}

func (l *Logger) LogConsistency(runID string, issues []string) {
	l.Log(Event{
		Type:  EventTypeConsistency,
		RunID: runID,
		Data:  map[string]any{"issues": issues},
	})
}

func (l *Logger) LogPolicy(source, field, reason string) {
	l.Log(Event{
		Type: EventTypePolicyCheck,
		Data: map[string]string{
			"source": source,
			"field":  field,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID, stage string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Stage: stage,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
