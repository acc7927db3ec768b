package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestShouldParseRequestInfoDoc(t *testing.T) {
	assert := assert.New(t)

	doc := `{
		"_id": "640f112300514323466c0e35",
		"name": "CircuitSimulation",
		"label": "ghz_10",
		"status": "DONE",
		"user": {"email": "jane@example.com"},
		"creationDate": 1700000000000,
		"runningDate": "2023-11-14T22:13:40Z",
		"doneDate": "2023-11-14T22:20:01Z",
		"numberOfUploadedFiles": 2,
		"numberOfResultedFiles": 3,
		"emulatorType": "MIMIQ"
	}`

	var info RequestInfo
	err := json.Unmarshal([]byte(doc), &info)
	assert.NoError(err)

	assert.Equal("640f112300514323466c0e35", info.ID)
	assert.Equal("CircuitSimulation", info.Name)
	assert.Equal("ghz_10", info.Label)
	assert.Equal(StatusDone, info.Status)
	assert.Equal("jane@example.com", info.User.Email)
	assert.Equal(2, info.NumUploadedFiles)
	assert.Equal(3, info.NumResultedFiles)

	assert.Equal(2, info.FileCount(SourceUploads))
	assert.Equal(3, info.FileCount(SourceResults))

	// unmapped fields stay reachable through the raw doc
	assert.Contains(string(info.Raw), "emulatorType")
}

func TestShouldParseMixedDateEncodings(t *testing.T) {
	assert := assert.New(t)

	var ts Timestamp

	// epoch milliseconds
	assert.NoError(json.Unmarshal([]byte(`1700000000000`), &ts))
	assert.True(ts.Available())
	assert.Equal(int64(1700000000000), ts.Time().UnixMilli())

	// epoch seconds
	ts = Timestamp{}
	assert.NoError(json.Unmarshal([]byte(`1700000000`), &ts))
	assert.True(ts.Available())
	assert.Equal(int64(1700000000), ts.Time().Unix())

	// digit string in milliseconds
	ts = Timestamp{}
	assert.NoError(json.Unmarshal([]byte(`"1700000000000"`), &ts))
	assert.True(ts.Available())
	assert.Equal(int64(1700000000000), ts.Time().UnixMilli())

	// ISO-8601
	ts = Timestamp{}
	assert.NoError(json.Unmarshal([]byte(`"2023-11-14T22:13:40Z"`), &ts))
	assert.Equal("2023-11-14 22:13:40", ts.Format())

	// missing
	ts = Timestamp{}
	assert.NoError(json.Unmarshal([]byte(`null`), &ts))
	assert.False(ts.Available())
	assert.Equal("Not available", ts.Format())

	// unparseable values are shown as received
	ts = Timestamp{}
	assert.NoError(json.Unmarshal([]byte(`"someday"`), &ts))
	assert.False(ts.Available())
	assert.Equal("someday", ts.Format())
}

func TestShouldRenderRequestInfoLine(t *testing.T) {
	assert := assert.New(t)

	doc := `{
		"_id": "abc123",
		"name": "Sim",
		"label": "bell",
		"status": "RUNNING",
		"user": {"email": "jane@example.com"},
		"creationDate": "2023-11-14T22:13:40Z",
		"numberOfUploadedFiles": 1
	}`

	var info RequestInfo
	assert.NoError(json.Unmarshal([]byte(doc), &info))

	line := info.String()
	assert.Contains(line, "Request abc123")
	assert.Contains(line, "Status: RUNNING")
	assert.Contains(line, "Created: 2023-11-14 22:13:40")
	assert.Contains(line, "Running: Not available")
	assert.Contains(line, "Files: 1/0 (up/res)")
}

func TestShouldRenderRequestTable(t *testing.T) {
	assert := assert.New(t)

	list := RequestInfoList{
		{ID: "aaa", Label: "short", Status: StatusNew},
		{ID: "bbb", Label: "a-very-long-label-beyond-width", Status: StatusDone},
		{ID: "ccc", Label: "x", Status: StatusDone},
	}

	out := list.String()
	lines := strings.Split(out, "\n")

	assert.Equal("Total: 3 requests - 1 NEW, 2 DONE", lines[0])
	assert.Contains(lines[1], "ID")
	assert.Contains(lines[1], "LABEL")
	assert.Contains(lines[1], "STATUS")

	assert.Contains(out, "a-very-long-label-...")
	assert.True(strings.HasPrefix(lines[3], "aaa"))

	assert.Equal("No requests available", RequestInfoList{}.String())
}

func TestShouldTruncateLabelsOnRunes(t *testing.T) {
	assert := assert.New(t)

	// byte 18 falls inside the first ψ, a byte cut would mangle it
	label := "0123456789abcdefgψψψ"

	list := RequestInfoList{
		{ID: "aaa", Label: label, Status: StatusDone},
	}

	out := list.String()
	assert.True(utf8.ValidString(out))
	assert.Contains(out, "0123456789abcdefgψ...")
}

func TestShouldCountStatuses(t *testing.T) {
	assert := assert.New(t)

	list := RequestInfoList{
		{Status: StatusNew},
		{Status: StatusRunning},
		{Status: StatusRunning},
	}

	counts := list.StatusCounts()
	assert.Equal(1, counts[StatusNew])
	assert.Equal(2, counts[StatusRunning])
	assert.Equal(0, counts[StatusDone])
}
