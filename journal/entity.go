package journal

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/qperfect-io/mimiqlink-go/domain"
)

// Entry one submission made through this client.
type Entry struct {
	ID           string
	ExecutionID  string
	Server       string
	Name         string
	Label        string
	EmulatorType string
	Status       domain.Status
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

// String renders the entry as one listing row with a humanized age.
func (e *Entry) String() string {
	return fmt.Sprintf("%-26s %-18s %-8s %s",
		e.ExecutionID, e.Label, e.Status, humanize.Time(e.SubmittedAt))
}
