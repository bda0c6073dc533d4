package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned by Decoder.Next for a delimited line that is
// not valid JSON. The line is dropped from the buffer.
var ErrMalformedFrame = errors.New("malformed frame")

// Encode serializes an envelope as a single line of JSON terminated by '\n'.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decoder accumulates bytes read from a transport and splits them into
// newline-delimited JSON frames. The zero value is ready to use.
type Decoder struct {
	buf []byte
}

// Feed appends newly read bytes to the accumulator.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards any buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next returns the next complete frame. ok is false when more input is
// needed. Blank lines are skipped. A line that is not valid JSON is consumed
// and reported as ErrMalformedFrame so the caller can log it and continue.
//
// A server that does not terminate its last message with a newline is still
// understood: if no delimiter is buffered but the pending bytes already form
// a complete JSON object, that object is returned.
func (d *Decoder) Next() (frame json.RawMessage, ok bool, err error) {
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return d.unterminated()
		}
		line := bytes.TrimSpace(d.buf[:i])
		d.consume(i + 1)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, false, fmt.Errorf("%w: %q", ErrMalformedFrame, truncate(line, 120))
		}
		return cloneFrame(line), true, nil
	}
}

func (d *Decoder) unterminated() (json.RawMessage, bool, error) {
	pending := bytes.TrimSpace(d.buf)
	if len(pending) == 0 || pending[0] != '{' || !json.Valid(pending) {
		return nil, false, nil
	}
	frame := cloneFrame(pending)
	d.Reset()
	return frame, true, nil
}

func (d *Decoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}

func cloneFrame(b []byte) json.RawMessage {
	return append(json.RawMessage(nil), b...)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
