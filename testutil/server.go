// Package testutil provides an in-process fake of the execution log service
// for tests: the websocket push endpoint and the historical log endpoints,
// backed by scripted executions. Point a stream manager or query client at
// BaseURL and drive the script.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/logstream/types"
)

// ScriptedExecution is the canned behavior of the fake service for one
// execution id. Entries are served by the historical endpoints and replayed
// in order on the push channel.
type ScriptedExecution struct {
	ID      string
	Entries []types.LogEntry

	// Status, when set, is sent as an execution_status frame after the
	// entries. The historical endpoints ignore it.
	Status *types.StatusUpdate

	// RawFrames are written verbatim on the push channel before anything
	// else. Useful for unknown tags and malformed payloads.
	RawFrames []string

	// InjectPing sends a protocol ping between the entries and the status
	// frame and waits for the pong reply, recording it.
	InjectPing bool

	// FrameDelay spaces out scripted frames. Zero sends them back to back.
	FrameDelay time.Duration

	// CloseAbnormally drops the connection without a close handshake once
	// the script is done, the way a crashed server would.
	CloseAbnormally bool

	// KeepOpen leaves the channel open after the script until the client
	// disconnects or the server shuts down. Without it the channel is
	// closed with a normal-closure code.
	KeepOpen bool
}

// Server is the fake execution log service. All methods are safe for
// concurrent use; the zero value is not usable, construct with NewServer.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	mu         sync.Mutex
	token      string
	executions map[string]ScriptedExecution
	failures   map[string][]int
	requests   map[string]int
	streams    map[string]int
	pongs      int
}

// NewServer starts the fake service. It shuts down when the test finishes.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		executions: make(map[string]ScriptedExecution),
		failures:   make(map[string][]int),
		requests:   make(map[string]int),
		streams:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ws/executions/", s.handleStream)
	mux.HandleFunc("/api/v1/logs/executions/", s.handleQuery)

	s.httpServer = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the http origin of the fake service
func (s *Server) BaseURL() string {
	return s.httpServer.URL
}

// Close shuts the service down, dropping any open push channels
func (s *Server) Close() {
	s.httpServer.Close()
}

// RequireToken makes the service reject requests whose access token does not
// match: 401 on the historical endpoints, refused upgrade on the push
// endpoint. An empty expectation accepts any token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// AddExecution registers a scripted execution, replacing any previous script
// for the same id
func (s *Server) AddExecution(exec ScriptedExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ID] = exec
}

// FailNext queues failure responses for a historical endpoint kind
// ("unified", "stdout", "stderr"): the next len(statuses) requests answer
// with those status codes in order, then normal service resumes.
func (s *Server) FailNext(kind string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] = append(s.failures[kind], statuses...)
}

// Requests returns how many historical requests of a kind have been served,
// failures included
func (s *Server) Requests(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[kind]
}

// StreamOpens returns how many push channels have been opened for an
// execution, counting reconnections
func (s *Server) StreamOpens(executionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[executionID]
}

// Pongs returns how many pong frames the service has received
func (s *Server) Pongs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pongs
}

// handleStream serves /api/v1/ws/executions/{id}/logs
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/ws/executions/")
	escaped, ok := strings.CutSuffix(rest, "/logs")
	if !ok || escaped == "" {
		http.NotFound(w, r)
		return
	}
	id, err := url.PathUnescape(escaped)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	expected := s.token
	exec, known := s.executions[id]
	if known {
		s.streams[id]++
	}
	s.mu.Unlock()

	if expected != "" && r.URL.Query().Get("token") != expected {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !known {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.runScript(conn, exec)
}

// runScript plays a scripted execution onto an upgraded connection
func (s *Server) runScript(conn *websocket.Conn, exec ScriptedExecution) {
	write := func(data []byte) bool {
		if exec.FrameDelay > 0 {
			time.Sleep(exec.FrameDelay)
		}
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for _, raw := range exec.RawFrames {
		if !write([]byte(raw)) {
			return
		}
	}

	for _, entry := range exec.Entries {
		data, err := logLineFrame(entry)
		if err != nil || !write(data) {
			return
		}
	}

	if exec.InjectPing {
		if !write([]byte(`{"type":"ping"}`)) {
			return
		}
		if !s.awaitPong(conn) {
			return
		}
	}

	if exec.Status != nil {
		data, err := statusFrame(*exec.Status)
		if err != nil || !write(data) {
			return
		}
	}

	switch {
	case exec.KeepOpen:
		// Drain until the client goes away or the server shuts down
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	case exec.CloseAbnormally:
		// No close handshake
		return
	default:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete"))
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, _ = conn.ReadMessage()
	}
}

// awaitPong reads one frame and records it if it is a pong
func (s *Server) awaitPong(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	var frame types.Frame
	if json.Unmarshal(raw, &frame) != nil || frame.Type != types.FramePong {
		return false
	}

	s.mu.Lock()
	s.pongs++
	s.mu.Unlock()
	return true
}

// handleQuery serves the historical endpoints:
//
//	/api/v1/logs/executions/{id}          unified, ?format= structured|raw
//	/api/v1/logs/executions/{id}/stdout   raw stdout text
//	/api/v1/logs/executions/{id}/stderr   raw stderr text
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/logs/executions/")
	escaped, kind := rest, "unified"
	if before, found := strings.CutSuffix(rest, "/stdout"); found {
		escaped, kind = before, "stdout"
	} else if before, found := strings.CutSuffix(rest, "/stderr"); found {
		escaped, kind = before, "stderr"
	}
	id, err := url.PathUnescape(escaped)
	if err != nil || id == "" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.requests[kind]++
	expected := s.token
	exec, known := s.executions[id]
	var failWith int
	if queued := s.failures[kind]; len(queued) > 0 {
		failWith = queued[0]
		s.failures[kind] = queued[1:]
	}
	s.mu.Unlock()

	if failWith != 0 {
		http.Error(w, http.StatusText(failWith), failWith)
		return
	}
	if expected != "" && r.Header.Get("Authorization") != "Bearer "+expected {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !known {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}

	switch kind {
	case "stdout":
		s.writeRawLogs(w, filterByType(exec.Entries, types.LogTypeStdout), r, "stdout.log")
	case "stderr":
		s.writeRawLogs(w, filterByType(exec.Entries, types.LogTypeStderr), r, "stderr.log")
	default:
		s.writeUnified(w, r, exec)
	}
}

// writeUnified answers the unified endpoint, honoring filters and format
func (s *Server) writeUnified(w http.ResponseWriter, r *http.Request, exec ScriptedExecution) {
	q := r.URL.Query()

	entries := exec.Entries
	if logType := q.Get("log_type"); logType != "" {
		entries = filterByType(entries, types.LogType(logType))
	}
	if level := q.Get("level"); level != "" {
		entries = filterEntries(entries, func(e types.LogEntry) bool {
			return string(e.Level) == level
		})
	}
	if search := q.Get("search"); search != "" {
		entries = filterEntries(entries, func(e types.LogEntry) bool {
			return strings.Contains(e.Message, search)
		})
	}
	total := len(entries)
	entries = lastN(entries, q.Get("lines"))

	if q.Get("format") == "raw" {
		s.writeRawLogs(w, entries, r, "unified.log")
		return
	}

	writeJSON(w, map[string]any{
		"total": total,
		"page":  1,
		"size":  len(entries),
		"items": entries,
	})
}

// writeRawLogs answers with the raw-content response shape
func (s *Server) writeRawLogs(w http.ResponseWriter, entries []types.LogEntry, r *http.Request, filename string) {
	entries = lastN(entries, r.URL.Query().Get("lines"))

	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry.Message)
		b.WriteString("\n")
	}
	content := b.String()

	writeJSON(w, map[string]any{
		"raw_content":   content,
		"file_path":     "/var/log/executions/" + filename,
		"file_size":     int64(len(content)),
		"lines_count":   len(entries),
		"last_modified": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func filterByType(entries []types.LogEntry, logType types.LogType) []types.LogEntry {
	return filterEntries(entries, func(e types.LogEntry) bool {
		return e.LogType == logType
	})
}

func filterEntries(entries []types.LogEntry, keep func(types.LogEntry) bool) []types.LogEntry {
	out := make([]types.LogEntry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// lastN keeps the trailing n entries when the lines parameter is set
func lastN(entries []types.LogEntry, lines string) []types.LogEntry {
	if lines == "" {
		return entries
	}
	n, err := strconv.Atoi(lines)
	if err != nil || n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// logLineFrame encodes a log entry as a log_line frame
func logLineFrame(entry types.LogEntry) ([]byte, error) {
	payload, err := json.Marshal(types.LogLinePayload{
		ID:          entry.ID,
		Timestamp:   entry.Timestamp,
		Level:       string(entry.Level),
		LogType:     string(entry.LogType),
		ExecutionID: entry.ExecutionID,
		TaskID:      entry.TaskID,
		Content:     entry.Message,
		Source:      entry.Source,
		FilePath:    entry.FilePath,
		LineNumber:  entry.LineNumber,
		ExtraData:   entry.ExtraData,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.Frame{Type: types.FrameLogLine, Data: payload})
}

// statusFrame encodes a status update as an execution_status frame
func statusFrame(update types.StatusUpdate) ([]byte, error) {
	payload, err := json.Marshal(types.ExecutionStatusPayload{
		Status:   string(update.Status),
		Message:  update.Message,
		Progress: update.Progress,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.Frame{Type: types.FrameExecutionStatus, Data: payload})
}
