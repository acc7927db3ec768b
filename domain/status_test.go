package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldReportJobPredicates(t *testing.T) {
	assert := assert.New(t)

	assert.True(StatusDone.IsDone())
	assert.True(StatusError.IsDone())
	assert.False(StatusRunning.IsDone())

	assert.True(StatusError.IsFailed())
	assert.False(StatusDone.IsFailed())

	assert.False(StatusNew.IsStarted())
	assert.True(StatusRunning.IsStarted())
	assert.True(StatusCanceled.IsStarted())

	assert.True(StatusCanceled.IsCanceled())
	assert.False(StatusDone.IsCanceled())
}

func TestShouldDetectTerminalStatus(t *testing.T) {
	assert := assert.New(t)

	assert.True(StatusDone.IsTerminal())
	assert.True(StatusError.IsTerminal())
	assert.True(StatusCanceled.IsTerminal())

	assert.False(StatusNew.IsTerminal())
	assert.False(StatusRunning.IsTerminal())
}

func TestShouldValidateStatusTransitions(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateTransition(StatusNew, StatusRunning))
	assert.NoError(ValidateTransition(StatusNew, StatusCanceled))
	assert.NoError(ValidateTransition(StatusRunning, StatusDone))
	assert.NoError(ValidateTransition(StatusRunning, StatusError))
	assert.NoError(ValidateTransition(StatusRunning, StatusCanceled))

	// first observation and repeats are fine
	assert.NoError(ValidateTransition("", StatusDone))
	assert.NoError(ValidateTransition(StatusRunning, StatusRunning))

	assert.Error(ValidateTransition(StatusNew, StatusDone))
	assert.Error(ValidateTransition(StatusDone, StatusRunning))
	assert.Error(ValidateTransition(StatusCanceled, StatusNew))
}
