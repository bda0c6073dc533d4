package mcp

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"
)

// readChunkSize bounds a single ReadAvailable call.
const readChunkSize = 64 * 1024

// deadlineReader is implemented by *os.File (pipes on Unix) and net.Conn.
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// readWithin performs one read that gives up after wait. A deadline expiry
// yields no bytes and no error; a closed stream yields io.EOF.
func readWithin(r deadlineReader, wait time.Duration) ([]byte, error) {
	if err := r.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, classifyReadErr(err)
	}
	buf := make([]byte, readChunkSize)
	n, err := r.Read(buf)
	if n > 0 {
		// Any error resurfaces on the next call.
		return buf[:n], nil
	}
	return nil, classifyReadErr(err)
}

func classifyReadErr(err error) error {
	switch {
	case err == nil, errors.Is(err, os.ErrDeadlineExceeded):
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, os.ErrClosed), errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET):
		return io.EOF
	default:
		return err
	}
}

// chunk is one read result delivered by a pumpReader.
type chunk struct {
	data []byte
	err  error
}

// pumpReader provides deadline reads over a reader that cannot be polled,
// such as an anonymous pipe on Windows. A goroutine performs blocking reads
// and hands the results over a channel.
type pumpReader struct {
	r    io.Reader
	once sync.Once
	ch   chan chunk
}

func newPumpReader(r io.Reader) *pumpReader {
	return &pumpReader{r: r, ch: make(chan chunk, 1)}
}

func (p *pumpReader) start() {
	go func() {
		defer close(p.ch)
		for {
			buf := make([]byte, readChunkSize)
			n, err := p.r.Read(buf)
			if n > 0 {
				p.ch <- chunk{data: buf[:n]}
			}
			if err != nil {
				p.ch <- chunk{err: err}
				return
			}
		}
	}()
}

func (p *pumpReader) readWithin(wait time.Duration) ([]byte, error) {
	p.once.Do(p.start)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case c, ok := <-p.ch:
		if !ok {
			return nil, io.EOF
		}
		if len(c.data) > 0 {
			return c.data, nil
		}
		return nil, classifyReadErr(c.err)
	case <-timer.C:
		return nil, nil
	}
}
