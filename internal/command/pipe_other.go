//go:build !linux

package command

import (
	"errors"
	"os"
	"time"
)

var errStreamingUnsupported = errors.New("streaming execution is only supported on linux")

type pipeReader struct{}

func openPipe() (*pipeReader, *os.File, error) {
	return nil, nil, errStreamingUnsupported
}

func (p *pipeReader) WaitReadable(time.Duration) (bool, error) { return false, errStreamingUnsupported }

func (p *pipeReader) ReadAvailable() ([]byte, error) { return nil, errStreamingUnsupported }

func (p *pipeReader) Close() error { return nil }
