package command

import "time"

// PollableReader is the read side of a child's output that RunLogged
// multiplexes. WaitReadable blocks for at most timeout and reports whether a
// read would return without blocking (data or end of stream). ReadAvailable
// returns whatever can be read right now; it returns io.EOF, possibly along
// with final data, once every writer has closed its end.
type PollableReader interface {
	WaitReadable(timeout time.Duration) (bool, error)
	ReadAvailable() ([]byte, error)
}
