package command

import (
	"fmt"
	"io"
)

// Input is data written to a child's standard input before Run waits for it.
// Construct one with Text, Bytes, or Stream; a nil Input means no input.
type Input interface {
	resolve() ([]byte, error)
}

type textInput string

type bytesInput []byte

type streamInput struct{ r io.Reader }

// Text feeds s, encoded as UTF-8.
func Text(s string) Input { return textInput(s) }

// Bytes feeds b unchanged.
func Bytes(b []byte) Input { return bytesInput(b) }

// Stream reads r to EOF and feeds its content.
func Stream(r io.Reader) Input { return streamInput{r: r} }

func (t textInput) resolve() ([]byte, error) { return []byte(t), nil }

func (b bytesInput) resolve() ([]byte, error) { return []byte(b), nil }

func (s streamInput) resolve() ([]byte, error) {
	if s.r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(s.r)
	if err != nil {
		return nil, fmt.Errorf("read input stream: %w", err)
	}
	return data, nil
}

func resolveInput(in Input) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	data, err := in.resolve()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}
