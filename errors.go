package memsim

import "github.com/pkg/errors"

// Errors returned by Engine operations, match them with errors.Is
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidSize          = errors.New("invalid size")
	ErrInvalidProcessID     = errors.New("invalid process id")
	ErrUnknownStrategy      = errors.New("unknown strategy")
	ErrDuplicateProcess     = errors.New("process already exists")
	ErrUnknownProcess       = errors.New("process not found")
	ErrInsufficientFrames   = errors.New("not enough free frames")
	ErrNoSuitableBlock      = errors.New("no suitable free block")
)
