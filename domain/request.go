package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FileSource selects which file set of an execution request to address.
type FileSource string

const (
	SourceUploads FileSource = "uploads"
	SourceResults FileSource = "results"
)

const (
	notAvailable = "Not available"
	unknown      = "Unknown"

	dateLayout = "2006-01-02 15:04:05"

	// epoch values above this are milliseconds, not seconds
	milliEpochMin = 1000000000000
)

// ===================================
//		Timestamp
// ===================================

// Timestamp accepts the mixed date encodings used by the server:
// epoch millis or seconds, as JSON numbers or digit strings, or ISO-8601 text.
type Timestamp struct {
	raw string
	t   time.Time
	set bool
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, "\"") {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}

		ts.raw = str
		if str == "" || str == "None" {
			ts.raw = ""
			return nil
		}

		if n, err := strconv.ParseInt(str, 10, 64); err == nil {
			ts.fromEpoch(n)
			return nil
		}

		ts.parseText(str)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}

	ts.fromEpoch(int64(f))
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.set {
		return json.Marshal(ts.t.Format(time.RFC3339))
	}
	if ts.raw != "" {
		return json.Marshal(ts.raw)
	}
	return []byte("null"), nil
}

func (ts *Timestamp) fromEpoch(n int64) {
	if n > milliEpochMin {
		ts.t = time.UnixMilli(n)
	} else {
		ts.t = time.Unix(n, 0)
	}
	ts.set = true
}

func (ts *Timestamp) parseText(s string) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		dateLayout,
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.t = t
			ts.set = true
			return
		}
	}
}

func (ts Timestamp) Available() bool {
	return ts.set
}

func (ts Timestamp) Time() time.Time {
	return ts.t
}

// Format renders the date for display, keeping the raw server value
// when it could not be parsed.
func (ts Timestamp) Format() string {
	if ts.set {
		return ts.t.Format(dateLayout)
	}
	if ts.raw != "" {
		return ts.raw
	}
	return notAvailable
}

func (ts Timestamp) String() string {
	return ts.Format()
}

// ===================================
//		RequestInfo
// ===================================

type (
	UserInfo struct {
		Email string `json:"email"`
	}

	// RequestInfo the execution request document from the server
	RequestInfo struct {
		ID     string   `json:"_id"`
		Name   string   `json:"name"`
		Label  string   `json:"label"`
		Status Status   `json:"status"`
		User   UserInfo `json:"user"`

		CreationDate Timestamp `json:"creationDate"`
		RunningDate  Timestamp `json:"runningDate"`
		DoneDate     Timestamp `json:"doneDate"`

		NumUploadedFiles int `json:"numberOfUploadedFiles"`
		NumResultedFiles int `json:"numberOfResultedFiles"`

		// Raw keeps the full document for fields not mapped above
		Raw json.RawMessage `json:"-"`
	}

	// RequestPage one page of the paginated request listing
	RequestPage struct {
		Docs RequestInfoList `json:"docs"`
	}

	RequestListReply struct {
		Executions RequestPage `json:"executions"`
	}

	// RequestFilter optional query filters for the request listing
	RequestFilter struct {
		Status Status `url:"status,omitempty"`
		Limit  int    `url:"limit,omitempty"`
		Page   int    `url:"page,omitempty"`
	}
)

func (r *RequestInfo) UnmarshalJSON(b []byte) error {
	type alias RequestInfo

	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}

	*r = RequestInfo(a)
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// FileCount the number of files available from the given source.
func (r *RequestInfo) FileCount(source FileSource) int {
	if source == SourceUploads {
		return r.NumUploadedFiles
	}
	return r.NumResultedFiles
}

func (r *RequestInfo) String() string {
	out := fmt.Sprintf(
		"Request %s | Name: %s | Label: %s | Status: %s | User: %s | Created: %s | Running: %s | Completed: %s",
		orUnknown(r.ID),
		orUnknown(r.Name),
		orUnknown(r.Label),
		orUnknown(string(r.Status)),
		orUnknown(r.User.Email),
		r.CreationDate.Format(),
		r.RunningDate.Format(),
		r.DoneDate.Format(),
	)

	if r.NumUploadedFiles > 0 || r.NumResultedFiles > 0 {
		out += fmt.Sprintf(" | Files: %d/%d (up/res)", r.NumUploadedFiles, r.NumResultedFiles)
	}

	return out
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

// ===================================
//		RequestInfoList
// ===================================

type RequestInfoList []*RequestInfo

func (l RequestInfoList) StatusCounts() map[Status]int {
	counts := map[Status]int{}
	for _, req := range l {
		counts[req.Status]++
	}
	return counts
}

// String renders the list as a fixed width table with a status summary line.
func (l RequestInfoList) String() string {
	if len(l) == 0 {
		return "No requests available"
	}

	counts := l.StatusCounts()

	var statusParts []string
	for _, status := range []Status{StatusNew, StatusRunning, StatusDone, StatusError, StatusCanceled} {
		if n := counts[status]; n > 0 {
			statusParts = append(statusParts, fmt.Sprintf("%d %s", n, status))
		}
	}

	summary := fmt.Sprintf("Total: %d requests - %s", len(l), strings.Join(statusParts, ", "))
	header := "ID                          LABEL                STATUS"

	lines := []string{summary, header, strings.Repeat("-", len(header))}

	for _, req := range l {
		label := req.Label
		tail := "  "
		if runes := []rune(label); len(runes) > 18 {
			label = string(runes[:18])
			tail = "..."
		}

		lines = append(lines, fmt.Sprintf("%-26s%-18s%s%-8s", req.ID, label, tail, req.Status))
	}

	return strings.Join(lines, "\n")
}
