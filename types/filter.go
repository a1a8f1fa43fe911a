// Package types contains shared domain types used across the logstream client
package types

// Line count bounds accepted by the log query endpoints
const (
	MinQueryLines = 1
	MaxQueryLines = 10000
)

// QueryFilter narrows a historical log query. Zero values mean "not set":
// the corresponding query parameter is omitted from the request. Lines is
// clamped into [MinQueryLines, MaxQueryLines] when set; Lines == 0 means
// no limit was requested and is passed through unclamped (the parameter is
// simply not sent).
type QueryFilter struct {
	LogType LogType  `json:"log_type,omitempty"`
	Level   LogLevel `json:"level,omitempty"`
	Lines   int      `json:"lines,omitempty"`
	Search  string   `json:"search,omitempty"`
}

// ClampLines returns the line count that will be sent to the server:
// values below MinQueryLines are raised to it, values above MaxQueryLines
// are lowered to it, and 0 is returned untouched.
func (f QueryFilter) ClampLines() int {
	if f.Lines == 0 {
		return 0
	}
	if f.Lines < MinQueryLines {
		return MinQueryLines
	}
	if f.Lines > MaxQueryLines {
		return MaxQueryLines
	}
	return f.Lines
}
