package disc

import (
	"errors"
	"fmt"
)

var (
	ErrOpen        = errors.New("open device failed")
	ErrClosed      = errors.New("device not open")
	ErrNoMedia     = errors.New("no recognizable media")
	ErrRead        = errors.New("sector read failed")
	ErrSubchannel  = errors.New("subchannel read failed")
	ErrUnsupported = errors.New("optical drive access unsupported on this platform")
)

// OpenError reports a device path that could not be opened. Err carries the
// OS error (typically a syscall.Errno).
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrOpen, e.Err}
}

// ProbeError reports an opened device on which neither the DVD nor the CD
// geometry probe succeeded. The handle stays open so presence polling can
// continue.
type ProbeError struct {
	Path string
	DVD  error
	CD   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: dvd: %v; cd: %v", e.Path, e.DVD, e.CD)
}

func (e *ProbeError) Unwrap() []error {
	return []error{ErrNoMedia, e.CD}
}

// ReadError reports a cooked or raw read that did not deliver every
// requested sector. First and Last bound the sectors covered by the failed
// request.
type ReadError struct {
	Mode     string
	First    uint32
	Last     uint32
	Expected int
	Got      int
	Err      error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s read sectors %d-%d: %v", e.Mode, e.First, e.Last, e.Err)
	}
	return fmt.Sprintf("%s read sectors %d-%d: %d bytes read, %d bytes expected", e.Mode, e.First, e.Last, e.Got, e.Expected)
}

func (e *ReadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRead}
	}
	return []error{ErrRead, e.Err}
}
