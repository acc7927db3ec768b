package journal

import "errors"

var (
	ErrNotRecorded     = errors.New("journal: execution request not recorded")
	ErrAlreadyRecorded = errors.New("journal: execution request already recorded")
)
