//go:build linux

package command

import (
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	pipeReadSize = 64 * 1024
	// maxReadPerCall bounds one ReadAvailable so a chatty child cannot starve
	// the exit check.
	maxReadPerCall = 1 << 20
)

// pipeReader is a non-blocking pipe read end driven with poll(2).
type pipeReader struct {
	fd  int
	buf []byte
}

// openPipe returns the read side as a PollableReader and the write side as a
// file suitable for exec.Cmd.Stdout/Stderr.
func openPipe() (*pipeReader, *os.File, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	return &pipeReader{fd: fds[0], buf: make([]byte, pipeReadSize)}, os.NewFile(uintptr(fds[1]), "|1"), nil
}

func (p *pipeReader) WaitReadable(timeout time.Duration) (bool, error) {
	ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
	}
}

func (p *pipeReader) ReadAvailable() ([]byte, error) {
	var out []byte
	for len(out) < maxReadPerCall {
		n, err := unix.Read(p.fd, p.buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return out, nil
		case err != nil:
			return out, err
		case n == 0:
			return out, io.EOF
		}
		out = append(out, p.buf[:n]...)
	}
	return out, nil
}

func (p *pipeReader) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
