package transcoder

import (
	"errors"
	"fmt"
)

// ErrTranscodeFailed is matched by every *TranscodeError.
var ErrTranscodeFailed = errors.New("transcode failed")

// TranscodeError reports a failed transcoder process together with the tail
// of its diagnostic output.
type TranscodeError struct {
	Op          string
	Label       string
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *TranscodeError) Error() string {
	msg := e.Op
	if e.Label != "" {
		msg += " " + e.Label
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	} else {
		msg = fmt.Sprintf("%s: exit status %d", msg, e.ExitCode)
	}
	if e.Diagnostics != "" {
		msg += ": " + e.Diagnostics
	}
	return msg
}

func (e *TranscodeError) Is(target error) bool {
	return target == ErrTranscodeFailed
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
