package domain

import "fmt"

// Status of an execution request on the remote server.
type Status string

const (
	// StatusNew request received, job not picked up yet
	StatusNew Status = "NEW"

	// StatusRunning job picked up by an emulator instance
	StatusRunning Status = "RUNNING"

	// StatusDone job finished and results are available
	StatusDone Status = "DONE"

	// StatusError job finished with an error
	StatusError Status = "ERROR"

	// StatusCanceled job canceled before completion
	StatusCanceled Status = "CANCELED"
)

var terminalStatuses = map[Status]bool{
	StatusDone:     true,
	StatusError:    true,
	StatusCanceled: true,
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusRunning:  true,
		StatusCanceled: true,
	},
	StatusRunning: {
		StatusDone:     true,
		StatusError:    true,
		StatusCanceled: true,
	},
}

func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsDone reports whether the job reached an end state, successful or not.
func (s Status) IsDone() bool {
	return s == StatusDone || s == StatusError
}

func (s Status) IsFailed() bool {
	return s == StatusError
}

// IsStarted reports whether the job left the queue.
func (s Status) IsStarted() bool {
	return s != StatusNew
}

func (s Status) IsCanceled() bool {
	return s == StatusCanceled
}

// ValidateTransition checks a status change against the job lifecycle.
// An empty from status is a first observation and always valid.
func ValidateTransition(from, to Status) error {
	if from == "" || from == to {
		return nil
	}

	if terminalStatuses[from] {
		return fmt.Errorf("cannot transition from terminal status %s", from)
	}

	if !allowedTransitions[from][to] {
		return fmt.Errorf("invalid status transition from %s to %s", from, to)
	}

	return nil
}
