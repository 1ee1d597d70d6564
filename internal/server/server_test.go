package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/source"
	"github.com/vango-dev/bore/pkg/bore"
)

const spans = `<div><span id="test1">test1</span><span id="test2">test2</span></div>`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Loader: source.New(),
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Code     string `json:"code"`
	Category string `json:"category"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, "GET", "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[map[string]string](t, rr)["status"]; got != "ok" {
		t.Errorf("status = %q", got)
	}
}

func TestMountAndQuery(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, "POST", "/mount", "text/html", spans)
	if rr.Code != http.StatusOK {
		t.Fatalf("mount status = %d: %s", rr.Code, rr.Body)
	}
	if m := decode[mountResponse](t, rr); m.Node != "DIV" {
		t.Errorf("mounted node = %q, want DIV", m.Node)
	}

	rr = do(t, s, "GET", "/query?q=span", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("query status = %d: %s", rr.Code, rr.Body)
	}
	got := decode[queryResponse](t, rr)
	want := queryResponse{Count: 2, Matches: []Match{
		{Node: "SPAN", HTML: `<span id="test1">test1</span>`, Text: "test1"},
		{Node: "SPAN", HTML: `<span id="test2">test2</span>`, Text: "test2"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryKinds(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "application/json", `{"markup":`+jsonString(spans)+`}`)

	tests := []struct {
		kind, q string
		want    int
	}{
		{"", "#test2", 1},
		{"", `//span[@id="test1"]`, 1},
		{"criteria", "id=test1", 1},
		{"expr", `localName == "span"`, 2},
		{"css", "p", 0},
	}
	for _, tt := range tests {
		v := url.Values{"q": {tt.q}}
		if tt.kind != "" {
			v.Set("kind", tt.kind)
		}
		rr := do(t, s, "GET", "/query?"+v.Encode(), "", "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s %q: status %d: %s", tt.kind, tt.q, rr.Code, rr.Body)
			continue
		}
		if got := decode[queryResponse](t, rr).Count; got != tt.want {
			t.Errorf("%s %q: count = %d, want %d", tt.kind, tt.q, got, tt.want)
		}
	}
}

func TestQueryErrors(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, "GET", "/query?q=span", "", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("query before mount: status = %d, want 409", rr.Code)
	}
	if got := decode[errorBody](t, rr).Code; got != "B050" {
		t.Errorf("code = %q, want B050", got)
	}

	do(t, s, "POST", "/mount", "", spans)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/query?q=" + url.QueryEscape("span["), http.StatusBadRequest, "B001"},
		{"/query?kind=nope&q=span", http.StatusBadRequest, "B002"},
		{"/query?kind=xpath&q=" + url.QueryEscape("//span["), http.StatusBadRequest, "B003"},
	}
	for _, tt := range tests {
		rr := do(t, s, "GET", tt.target, "", "")
		if rr.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.target, rr.Code, tt.status)
		}
		if got := decode[errorBody](t, rr).Code; got != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.target, got, tt.code)
		}
	}
}

func TestMountErrors(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, "POST", "/mount", "", "just text")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if got := decode[errorBody](t, rr).Code; got != "B010" {
		t.Errorf("code = %q, want B010", got)
	}

	rr = do(t, s, "POST", "/mount", "application/json", `{"markup":`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rr.Code)
	}

	missing := filepath.Join(t.TempDir(), "missing.html")
	rr = do(t, s, "POST", "/mount", "application/json", `{"source":`+jsonString(missing)+`}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing source: status = %d, want 404", rr.Code)
	}
}

func TestMountBodyLimit(t *testing.T) {
	s := New(Config{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxBody: 8,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	rr := do(t, s, "POST", "/mount", "", spans)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestMountSource(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "fixture.html")
	if err := os.WriteFile(path, []byte(spans), 0o644); err != nil {
		t.Fatal(err)
	}

	rr := do(t, s, "POST", "/mount", "application/json", `{"source":`+jsonString(path)+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	rr = do(t, s, "GET", "/query?q=span", "", "")
	if got := decode[queryResponse](t, rr).Count; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestMountSourceDisabled(t *testing.T) {
	s := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	rr := do(t, s, "POST", "/mount", "application/json", `{"source":"fixture.html"}`)
	if got := decode[errorBody](t, rr).Code; got != "B042" {
		t.Errorf("code = %q, want B042", got)
	}
}

func TestWait(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "", spans)

	rr := do(t, s, "GET", "/wait?q=span&timeout=1s", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if got := decode[queryResponse](t, rr).Count; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}

	rr = do(t, s, "GET", "/wait?q=p&timeout=20ms", "", "")
	if rr.Code != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", rr.Code)
	}
	if got := decode[errorBody](t, rr).Code; got != "B020" {
		t.Errorf("code = %q, want B020", got)
	}

	rr = do(t, s, "GET", "/wait?q=p&timeout=soon", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad timeout: status = %d, want 400", rr.Code)
	}
}

func TestWaitReleasesLockBetweenPolls(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "", spans)

	waited := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest("GET", "/wait?q=.late", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		waited <- rr
	}()

	queried := make(chan *httptest.ResponseRecorder, 1)
	go func() { queried <- do(t, s, "GET", "/query?q=span", "", "") }()
	select {
	case rr := <-queried:
		if got := decode[queryResponse](t, rr).Count; got != 2 {
			t.Errorf("query during wait: count = %d, want 2", got)
		}
	case <-time.After(time.Second):
		t.Fatal("query blocked behind a pending wait")
	}

	if rr := do(t, s, "POST", "/mount", "", `<div><b class="late">x</b></div>`); rr.Code != http.StatusOK {
		t.Fatalf("remount during wait: status = %d: %s", rr.Code, rr.Body)
	}
	select {
	case rr := <-waited:
		if rr.Code != http.StatusOK {
			t.Fatalf("wait status = %d: %s", rr.Code, rr.Body)
		}
		if got := decode[queryResponse](t, rr).Count; got != 1 {
			t.Errorf("wait count = %d, want 1", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not see the remount")
	}
}

func TestWaitDefaultTimeout(t *testing.T) {
	s := New(Config{
		WaitTimeout: 20 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	do(t, s, "POST", "/mount", "", spans)

	rr := do(t, s, "GET", "/wait?q=p", "", "")
	if rr.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408: %s", rr.Code, rr.Body)
	}
	if got := decode[errorBody](t, rr).Code; got != "B020" {
		t.Errorf("code = %q, want B020", got)
	}

	rr = do(t, s, "GET", "/wait?q=p&timeout=1ms", "", "")
	if rr.Code != http.StatusRequestTimeout {
		t.Errorf("explicit timeout: status = %d, want 408", rr.Code)
	}
}

func TestMountReleasesReplacedRoots(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "", spans)
	before := s.Arena().Document().Tracked()

	for i := 0; i < 200; i++ {
		if rr := do(t, s, "POST", "/mount", "", spans); rr.Code != http.StatusOK {
			t.Fatalf("mount status = %d", rr.Code)
		}
		do(t, s, "GET", "/query?q=span", "", "")
	}
	if got := s.Arena().Document().Tracked(); got > before+8 {
		t.Errorf("Tracked = %d after 200 remounts, started at %d", got, before)
	}
}

func TestWaitObservesLoopMutation(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "", spans)

	a := s.Arena()
	a.Loop().SetTimeout(10*time.Millisecond, func() {
		p := a.Document().CreateElement("p")
		a.Fixture().Children()[0].AppendChild(p)
	})

	rr := do(t, s, "GET", "/wait?q=p&timeout=1s", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if got := decode[queryResponse](t, rr).Count; got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestDiff(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want diffResponse
	}{
		{
			name: "equal",
			body: `{"a":"<p id=\"x\">hi</p>","b":"<p id=\"x\">hi</p>"}`,
			want: diffResponse{Equal: true, Patches: []string{}},
		},
		{
			name: "attribute",
			body: `{"a":"<p id=\"x\">hi</p>","b":"<p id=\"y\">hi</p>"}`,
			want: diffResponse{Patches: []string{`SetAttr / id="y"`}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, "POST", "/diff", "application/json", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body)
			}
			if diff := cmp.Diff(tt.want, decode[diffResponse](t, rr)); diff != "" {
				t.Errorf("diff mismatch (-want +got):\n%s", diff)
			}
		})
	}

	rr := do(t, s, "POST", "/diff", "application/json", `{"a":"text","b":"<p></p>"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("no element: status = %d, want 400", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "POST", "/mount", "", spans)
	do(t, s, "GET", "/query?q=span", "", "")

	rr := do(t, s, "GET", "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"bore_mounts_total 1", "bore_queries_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics missing %q", name)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{bore.ErrInvalidSelector, http.StatusBadRequest},
		{bore.ErrClosed, http.StatusBadRequest},
		{bore.ErrWaitTimeout, http.StatusRequestTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
		{errNotMounted, http.StatusConflict},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(Config{
		Addr:   "127.0.0.1:0",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := s.Arena().Mount(spans); err == nil {
		t.Error("arena should be closed after shutdown")
	}
}

func TestWebSocket(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	roundTrip := func(req Request) Reply {
		t.Helper()
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		var reply Reply
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if reply.ID != req.ID {
			t.Errorf("reply id = %d, want %d", reply.ID, req.ID)
		}
		return reply
	}

	if r := roundTrip(Request{ID: 1, Op: OpQuery, Q: "span"}); r.OK {
		t.Error("query before mount should fail")
	}
	if r := roundTrip(Request{ID: 2, Op: OpMount, Markup: spans}); !r.OK || r.Node != "DIV" {
		t.Errorf("mount reply = %+v", r)
	}
	if r := roundTrip(Request{ID: 3, Op: OpQuery, Q: "#test1"}); !r.OK || r.Count != 1 || r.Matches[0].Text != "test1" {
		t.Errorf("query reply = %+v", r)
	}
	r := roundTrip(Request{ID: 4, Op: OpWait, Q: "p", Timeout: config.Duration(20 * time.Millisecond)})
	if r.OK {
		t.Error("wait for a missing element should time out")
	}
	if got := decodeRaw[errorBody](t, r.Error).Code; got != "B020" {
		t.Errorf("wait error code = %q, want B020", got)
	}
	if r := roundTrip(Request{ID: 5, Op: OpDiff, A: "<p>a</p>", B: "<p>b</p>"}); !r.OK || r.Equal || len(r.Patches) != 1 {
		t.Errorf("diff reply = %+v", r)
	}
	if r := roundTrip(Request{ID: 6, Op: "explode"}); r.OK || len(r.Error) == 0 {
		t.Errorf("unknown op reply = %+v", r)
	}
}

func decodeRaw[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
