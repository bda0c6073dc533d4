package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

const initResult = `{"serverInfo":{"name":"demo","version":"0.1"},"protocolVersion":"2024-11-05"}`

func newTestSession(ft *fakeTransport) *Session {
	return NewSession(ft, SessionOptions{
		ClientName:      "mcpclient",
		ClientVersion:   "0.1.0",
		ResponseTimeout: time.Second,
	})
}

func TestInitialize(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{"initialize": initResult})}
	s := newTestSession(ft)

	info, err := s.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if info.Server.Name != "demo" {
		t.Errorf("Server.Name = %q, want %q", info.Server.Name, "demo")
	}
	if info.Server.Version != "0.1" {
		t.Errorf("Server.Version = %q, want %q", info.Server.Version, "0.1")
	}
	if info.ProtocolVersion != "2024-11-05" {
		t.Errorf("ProtocolVersion = %q, want %q", info.ProtocolVersion, "2024-11-05")
	}
	if string(info.Raw) != initResult {
		t.Errorf("Raw = %s, want %s", info.Raw, initResult)
	}
	if !s.Initialized() {
		t.Error("expected session to be initialized")
	}

	msgs := ft.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	req := msgs[0]
	if req["method"] != "initialize" {
		t.Errorf("first method = %v, want initialize", req["method"])
	}
	if req["jsonrpc"] != "2.0" {
		t.Errorf("jsonrpc = %v, want 2.0", req["jsonrpc"])
	}
	if req["id"] != float64(1) {
		t.Errorf("id = %v, want 1", req["id"])
	}
	params, _ := req["params"].(map[string]any)
	if params["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v, want 2024-11-05", params["protocolVersion"])
	}
	if caps, ok := params["capabilities"].(map[string]any); !ok || len(caps) != 0 {
		t.Errorf("capabilities = %#v, want empty object", params["capabilities"])
	}
	clientInfo, _ := params["clientInfo"].(map[string]any)
	if clientInfo["name"] != "mcpclient" || clientInfo["version"] != "0.1.0" {
		t.Errorf("clientInfo = %v", clientInfo)
	}

	notif := msgs[1]
	if notif["method"] != "notifications/initialized" {
		t.Errorf("second method = %v, want notifications/initialized", notif["method"])
	}
	if _, ok := notif["id"]; ok {
		t.Error("notification must not carry an id")
	}
	if _, ok := notif["params"]; ok {
		t.Error("notification must not carry params")
	}
}

func TestInitializeCached(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{"initialize": initResult})}
	s := newTestSession(ft)
	ctx := context.Background()

	first, err := s.Initialize(ctx)
	if err != nil {
		t.Fatalf("first Initialize() error: %v", err)
	}
	second, err := s.Initialize(ctx)
	if err != nil {
		t.Fatalf("second Initialize() error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached ServerInfo differs: %+v vs %+v", first, second)
	}

	var handshakes int
	for _, m := range ft.methods() {
		if m == "initialize" {
			handshakes++
		}
	}
	if handshakes != 1 {
		t.Errorf("initialize sent %d times, want 1", handshakes)
	}
}

func TestInitializeServerError(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{
		"error:initialize": `{"code":-32600,"message":"invalid request"}`,
	})}
	s := newTestSession(ft)

	_, err := s.Initialize(context.Background())
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
	if !errors.Is(err, ErrProtocol) {
		t.Error("expected errors.Is(err, ErrProtocol)")
	}
	if !strings.Contains(string(perr.Raw), "invalid request") {
		t.Errorf("Raw = %s, want the server response", perr.Raw)
	}
	if s.Initialized() {
		t.Error("session must stay uninitialized after a failed handshake")
	}
	if got := ft.methods(); len(got) != 1 {
		t.Errorf("expected only the initialize request, got %v", got)
	}
}

func TestInitializeNotificationWriteFailureKeepsState(t *testing.T) {
	ft := &fakeTransport{}
	ft.reply = func(msg map[string]any) []string {
		out := replyByMethod(map[string]string{"initialize": initResult})(msg)
		// The next write, the notification, fails.
		ft.writeErr = errors.New("broken pipe")
		return out
	}
	s := newTestSession(ft)

	_, err := s.Initialize(context.Background())
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Initialize() error = %v, want ErrWrite", err)
	}
	if !s.Initialized() {
		t.Error("handshake reply was accepted; session should be initialized")
	}
}

func TestListTools(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{
		"tools/list": `{"tools":[{"name":"add","description":"adds two numbers","inputSchema":{"properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}}]}`,
	})}
	s := newTestSession(ft)

	tools, err := s.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}

	tool := tools[0]
	if tool.Name != "add" {
		t.Errorf("Name = %q, want %q", tool.Name, "add")
	}
	if tool.Description != "adds two numbers" {
		t.Errorf("Description = %q, want %q", tool.Description, "adds two numbers")
	}
	wantProps := map[string]Property{"a": {Type: "integer"}, "b": {Type: "integer"}}
	if !reflect.DeepEqual(tool.InputSchema.Properties, wantProps) {
		t.Errorf("Properties = %#v, want %#v", tool.InputSchema.Properties, wantProps)
	}
	if !reflect.DeepEqual(tool.InputSchema.Required, []string{"a", "b"}) {
		t.Errorf("Required = %v, want [a b]", tool.InputSchema.Required)
	}
	if !tool.InputSchema.IsRequired("a") || tool.InputSchema.IsRequired("c") {
		t.Error("IsRequired disagrees with Required")
	}

	encoded, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("marshal tool: %v", err)
	}
	want := `{"name":"add","description":"adds two numbers","inputSchema":{"properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}}`
	if string(encoded) != want {
		t.Errorf("re-encoded tool = %s, want %s", encoded, want)
	}

	msgs := ft.messages()
	if msgs[0]["method"] != "tools/list" {
		t.Errorf("method = %v, want tools/list", msgs[0]["method"])
	}
	if _, ok := msgs[0]["params"]; ok {
		t.Error("tools/list must be sent without params")
	}
	if !reflect.DeepEqual(s.Tools(), tools) {
		t.Error("catalog was not cached")
	}
}

func TestListToolsFailureKeepsCache(t *testing.T) {
	calls := 0
	ft := &fakeTransport{}
	ft.reply = func(msg map[string]any) []string {
		calls++
		if calls == 1 {
			return replyByMethod(map[string]string{"tools/list": `{"tools":[{"name":"echo","inputSchema":{}}]}`})(msg)
		}
		return replyByMethod(map[string]string{"tools/list": `{"notTools":true}`})(msg)
	}
	s := newTestSession(ft)
	ctx := context.Background()

	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("first ListTools() error: %v", err)
	}
	_, err := s.ListTools(ctx)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("second ListTools() error = %v, want ErrProtocol", err)
	}
	if len(s.Tools()) != 1 || s.Tools()[0].Name != "echo" {
		t.Errorf("cache = %v, want the first catalog", s.Tools())
	}
}

func TestListToolsJSONRPCError(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(nil)}
	s := newTestSession(ft)

	_, err := s.ListTools(context.Background())
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("ListTools() error = %v, want ErrProtocol", err)
	}
	if s.Tools() != nil {
		t.Error("catalog must stay empty")
	}
}

func TestCallTool(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   any
	}{
		{"integer text", `{"content":[{"type":"text","text":"5"}]}`, float64(5)},
		{"plain text", `{"content":[{"type":"text","text":"hello"}]}`, map[string]any{"text": "hello"}},
		{"split json", `{"content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}]}`, map[string]any{"a": float64(1)}},
		{"non-text blocks ignored", `{"content":[{"type":"image","data":"xx"},{"type":"text","text":"[1,2]"}]}`, []any{float64(1), float64(2)}},
		{"non-text block fields not inspected", `{"content":[{"type":"text","text":"a"},{"type":"image","text":5}]}`, map[string]any{"text": "a"}},
		{"empty content", `{"content":[]}`, map[string]any{"text": ""}},
		{"null content", `{"content":null,"value":1}`, map[string]any{"content": nil, "value": float64(1)}},
		{"no content", `{"value":42}`, map[string]any{"value": float64(42)}},
		{"scalar result", `"done"`, "done"},
		{"null text decodes as JSON", `{"content":[{"type":"text","text":"null"}]}`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ft := &fakeTransport{reply: replyByMethod(map[string]string{"tools/call": tc.result})}
			s := newTestSession(ft)

			got, err := s.CallTool(context.Background(), "add", map[string]any{"a": 2, "b": 3})
			if err != nil {
				t.Fatalf("CallTool() error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("CallTool() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestCallToolRequestShape(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{"tools/call": `{"content":[]}`})}
	s := newTestSession(ft)

	if _, err := s.CallTool(context.Background(), "add", map[string]any{"a": 2, "b": 3}); err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if _, err := s.CallTool(context.Background(), "noargs", nil); err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}

	msgs := ft.messages()
	params := msgs[0]["params"].(map[string]any)
	if params["name"] != "add" {
		t.Errorf("name = %v, want add", params["name"])
	}
	if !reflect.DeepEqual(params["arguments"], map[string]any{"a": float64(2), "b": float64(3)}) {
		t.Errorf("arguments = %v", params["arguments"])
	}
	empty := msgs[1]["params"].(map[string]any)["arguments"]
	if m, ok := empty.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("nil arguments encoded as %#v, want {}", empty)
	}
}

func TestCallToolServerError(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{
		"error:tools/call": `{"code":-32601,"message":"method not found"}`,
	})}
	s := newTestSession(ft)

	_, err := s.CallTool(context.Background(), "add", nil)
	var terr *ToolError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if terr.Message != "method not found" {
		t.Errorf("Message = %q, want %q", terr.Message, "method not found")
	}
	if err.Error() != "method not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "method not found")
	}
	if terr.Code != -32601 {
		t.Errorf("Code = %d, want -32601", terr.Code)
	}
	if !errors.Is(err, ErrTool) {
		t.Error("expected errors.Is(err, ErrTool)")
	}
}

func TestCallToolUnrecognizedResponse(t *testing.T) {
	ft := &fakeTransport{reply: func(msg map[string]any) []string {
		return []string{`{"jsonrpc":"2.0","id":1}` + "\n"}
	}}
	s := newTestSession(ft)

	_, err := s.CallTool(context.Background(), "add", nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
	if perr.Reason != "unrecognized response" {
		t.Errorf("Reason = %q, want %q", perr.Reason, "unrecognized response")
	}
}

func TestRequestIDsIncrement(t *testing.T) {
	ft := &fakeTransport{reply: replyByMethod(map[string]string{"tools/list": `{"tools":[]}`})}
	s := newTestSession(ft)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.ListTools(ctx); err != nil {
			t.Fatalf("ListTools() error: %v", err)
		}
	}
	for i, msg := range ft.messages() {
		if want := float64(i + 1); msg["id"] != want {
			t.Errorf("request[%d].id = %v, want %v", i, msg["id"], want)
		}
	}
}

func TestSendAndAwaitTimeout(t *testing.T) {
	ft := &fakeTransport{}
	s := NewSession(ft, SessionOptions{ResponseTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := s.Initialize(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Initialize() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %s, before the timeout", elapsed)
	}
	if s.Initialized() || s.Tools() != nil {
		t.Error("session state changed by a timed-out request")
	}
}

func TestSendAndAwaitSkipsUnrelatedFrames(t *testing.T) {
	ft := &fakeTransport{reply: func(msg map[string]any) []string {
		return []string{
			"server booting...\n",
			`{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}` + "\n",
			`{"jsonrpc":"2.0","id":99,"result":{"stale":true}}` + "\n",
			`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}` + "\n",
		}
	}}
	s := newTestSession(ft)

	tools, err := s.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("expected empty catalog, got %v", tools)
	}
}

func TestSendAndAwaitDrainsAbandonedResponse(t *testing.T) {
	// The reply to request 1 arrives only after request 2 was sent.
	ft := &fakeTransport{}
	ft.reply = func(msg map[string]any) []string {
		if msg["id"] == float64(2) {
			return []string{
				`{"jsonrpc":"2.0","id":1,"result":{"tools":[{"name":"late"}]}}` + "\n",
				`{"jsonrpc":"2.0","id":2,"result":{"tools":[{"name":"fresh"}]}}` + "\n",
			}
		}
		return nil
	}
	s := NewSession(ft, SessionOptions{ResponseTimeout: 30 * time.Millisecond})
	ctx := context.Background()

	if _, err := s.ListTools(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("first ListTools() error = %v, want ErrTimeout", err)
	}
	tools, err := s.ListTools(ctx)
	if err != nil {
		t.Fatalf("second ListTools() error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "fresh" {
		t.Errorf("tools = %v, want [fresh]", tools)
	}
}

func TestSendAndAwaitSplitAcrossReads(t *testing.T) {
	ft := &fakeTransport{reply: func(msg map[string]any) []string {
		return []string{`{"jsonrpc":"2.0",`, `"id":1,"result":{"serverInfo":{"name":"demo",`, `"version":"0.1"}}}` + "\n"}
	}}
	s := newTestSession(ft)

	info, err := s.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if info.Server.Name != "demo" {
		t.Errorf("Server.Name = %q, want demo", info.Server.Name)
	}
}

func TestSendAndAwaitUnterminatedObject(t *testing.T) {
	ft := &fakeTransport{reply: func(msg map[string]any) []string {
		return []string{`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`}
	}}
	s := newTestSession(ft)

	if _, err := s.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
}

func TestSendAndAwaitConnectionClosed(t *testing.T) {
	ft := &fakeTransport{eof: true}
	s := newTestSession(ft)

	_, err := s.ListTools(context.Background())
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("ListTools() error = %v, want ErrProtocol", err)
	}
	if !strings.Contains(err.Error(), "connection closed") {
		t.Errorf("error = %q, want a connection closed message", err)
	}
}

func TestSendAndAwaitWriteFailure(t *testing.T) {
	ft := &fakeTransport{writeErr: errors.New("broken pipe")}
	s := newTestSession(ft)

	_, err := s.CallTool(context.Background(), "add", nil)
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("CallTool() error = %v, want ErrWrite", err)
	}
	if !strings.HasPrefix(err.Error(), "tools/call: ") {
		t.Errorf("error = %q, want tools/call prefix", err)
	}
}

func TestSendAndAwaitContextCancelled(t *testing.T) {
	ft := &fakeTransport{}
	s := NewSession(ft, SessionOptions{ResponseTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.ListTools(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ListTools() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestCallToolMalformedContent(t *testing.T) {
	for _, result := range []string{
		`{"content":"text"}`,
		`{"content":[{"type":"text","text":5}]}`,
		`{"content":["loose string"]}`,
	} {
		t.Run(result, func(t *testing.T) {
			ft := &fakeTransport{reply: replyByMethod(map[string]string{"tools/call": result})}
			s := newTestSession(ft)

			_, err := s.CallTool(context.Background(), "add", nil)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProtocolError, got %v", err)
			}
			if perr.Reason != "malformed content" {
				t.Errorf("Reason = %q, want %q", perr.Reason, "malformed content")
			}
		})
	}
}

func TestListToolsUncommonSchemas(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		wantType  SchemaType
		wantProps []string
	}{
		{"items true", `{"type":"object","properties":{"tags":{"type":"array","items":true}}}`, "object", []string{"tags"}},
		{"tuple items", `{"type":"object","properties":{"pair":{"type":"array","items":[{"type":"string"},{"type":"integer"}]}}}`, "object", []string{"pair"}},
		{"boolean property schema", `{"type":"object","properties":{"a":true,"b":{"type":"string"}}}`, "object", []string{"b"}},
		{"type list", `{"type":["object"],"properties":{"q":{"type":["string","null"]}}}`, "object", []string{"q"}},
		{"boolean schema", `true`, "", nil},
		{"odd members", `{"type":7,"properties":{"x":{"description":3,"enum":"a"}},"required":"x"}`, "", []string{"x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list := `{"tools":[{"name":"plain","inputSchema":{"type":"object"}},{"name":"odd","inputSchema":` + tc.schema + `}]}`
			ft := &fakeTransport{reply: replyByMethod(map[string]string{"tools/list": list})}
			s := newTestSession(ft)

			tools, err := s.ListTools(context.Background())
			if err != nil {
				t.Fatalf("ListTools() error: %v", err)
			}
			if len(tools) != 2 {
				t.Fatalf("expected 2 tools, got %d", len(tools))
			}

			odd := tools[1].InputSchema
			if odd.Type != tc.wantType {
				t.Errorf("Type = %q, want %q", odd.Type, tc.wantType)
			}
			var names []string
			for name := range odd.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			if !reflect.DeepEqual(names, tc.wantProps) {
				t.Errorf("Properties = %v, want %v", names, tc.wantProps)
			}
			if string(odd.Raw) != tc.schema {
				t.Errorf("Raw = %s, want %s", odd.Raw, tc.schema)
			}
		})
	}
}

func TestPropertyKeepsRawItems(t *testing.T) {
	var p Property
	if err := json.Unmarshal([]byte(`{"type":"array","items":{"type":"integer"},"enum":[[1],[2]],"default":[1]}`), &p); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if p.Type != "array" || string(p.Items) != `{"type":"integer"}` {
		t.Errorf("Property = %#v", p)
	}
	if len(p.Enum) != 2 || !reflect.DeepEqual(p.Default, []any{float64(1)}) {
		t.Errorf("Enum = %v, Default = %v", p.Enum, p.Default)
	}
}
