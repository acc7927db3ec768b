package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldDetectError(t *testing.T) {
	assert := assert.New(t)

	assert.False(HasError(nil))
	assert.True(HasError(errors.New("boom")))
}

func TestShouldDetectNonEmptyString(t *testing.T) {
	assert := assert.New(t)

	assert.False(HasString(""))
	assert.True(HasString("x"))
}
