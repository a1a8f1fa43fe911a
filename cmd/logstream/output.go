package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/c360/logstream/types"
)

// entryPrinter writes log entries and status updates to a single writer.
// The mutex keeps lines whole when several executions print concurrently.
// In json mode every line is one compact JSON object, suitable for piping.
type entryPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	json  bool
	multi bool // prefix lines with the execution id
}

func newEntryPrinter(w io.Writer, jsonOutput, multi bool) *entryPrinter {
	return &entryPrinter{w: w, json: jsonOutput, multi: multi}
}

// Entry prints one log line
func (p *entryPrinter) Entry(entry types.LogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintln(p.w, string(data))
		return
	}

	if p.multi {
		fmt.Fprintf(p.w, "[%s] %s %s [%s] %s\n",
			entry.ExecutionID, entry.Timestamp, entry.Level, entry.LogType, entry.Message)
		return
	}
	fmt.Fprintf(p.w, "%s %s [%s] %s\n",
		entry.Timestamp, entry.Level, entry.LogType, entry.Message)
}

// statusLine is the json mode shape for a status update
type statusLine struct {
	ExecutionID string                `json:"execution_id"`
	Status      types.ExecutionStatus `json:"status"`
	Message     string                `json:"message,omitempty"`
	Progress    *float64              `json:"progress,omitempty"`
}

// Status prints one execution status update
func (p *entryPrinter) Status(executionID string, update types.StatusUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		data, err := json.Marshal(statusLine{
			ExecutionID: executionID,
			Status:      update.Status,
			Message:     update.Message,
			Progress:    update.Progress,
		})
		if err != nil {
			return
		}
		fmt.Fprintln(p.w, string(data))
		return
	}

	var b strings.Builder
	if p.multi {
		fmt.Fprintf(&b, "[%s] ", executionID)
	}
	fmt.Fprintf(&b, "=== status: %s", update.Status)
	if update.Progress != nil {
		// The server does not define a scale, so print the number as sent
		fmt.Fprintf(&b, " progress=%g", *update.Progress)
	}
	if update.Message != "" {
		fmt.Fprintf(&b, " %s", update.Message)
	}
	fmt.Fprintln(p.w, b.String())
}

// printJSON writes a value as indented JSON, for one-shot fetch output
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printContent writes raw log text verbatim, ensuring a trailing newline
func printContent(w io.Writer, content string) {
	if content == "" {
		return
	}
	fmt.Fprint(w, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(w)
	}
}
