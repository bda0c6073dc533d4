package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// fakeTransport records written lines and serves queued chunks to reads.
// When reply is set it is called for every written line and the returned
// chunks are queued for reading.
type fakeTransport struct {
	mu       sync.Mutex
	written  [][]byte
	pending  [][]byte
	reply    func(msg map[string]any) []string
	writeErr error
	eof      bool
	closed   int
}

func (f *fakeTransport) WriteLine(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return fmt.Errorf("%w: %w", ErrWrite, f.writeErr)
	}
	f.written = append(f.written, append([]byte(nil), p...))
	if f.reply != nil {
		var msg map[string]any
		if err := json.Unmarshal(p, &msg); err != nil {
			return fmt.Errorf("fake transport: bad line %q: %w", p, err)
		}
		for _, chunk := range f.reply(msg) {
			f.pending = append(f.pending, []byte(chunk))
		}
	}
	return nil
}

func (f *fakeTransport) ReadAvailable(wait time.Duration) ([]byte, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		c := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return c, nil
	}
	eof := f.eof
	f.mu.Unlock()

	if eof {
		return nil, io.EOF
	}
	time.Sleep(min(wait, 5*time.Millisecond))
	return nil, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// messages decodes every written line.
func (f *fakeTransport) messages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.written))
	for _, line := range f.written {
		var msg map[string]any
		_ = json.Unmarshal(line, &msg)
		out = append(out, msg)
	}
	return out
}

// methods returns the method of every written line.
func (f *fakeTransport) methods() []string {
	var out []string
	for _, msg := range f.messages() {
		m, _ := msg["method"].(string)
		out = append(out, m)
	}
	return out
}

// replyByMethod answers requests with a result or error keyed by method.
// Values are raw JSON for the "result" member, or an error object when the
// key is prefixed with "error:". Notifications get no reply.
func replyByMethod(results map[string]string) func(map[string]any) []string {
	return func(msg map[string]any) []string {
		id, hasID := msg["id"]
		if !hasID {
			return nil
		}
		method, _ := msg["method"].(string)
		idJSON, _ := json.Marshal(id)
		if errObj, ok := results["error:"+method]; ok {
			return []string{fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":%s}`+"\n", idJSON, errObj)}
		}
		if result, ok := results[method]; ok {
			return []string{fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":%s}`+"\n", idJSON, result)}
		}
		return []string{fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`+"\n", idJSON)}
	}
}
