package intercept

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/override"
)

type fakeMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (m *fakeMetrics) RecordProxied(host, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[result]++
}

func newEchoServer(t *testing.T) (*httptest.Server, *http.Header, *[]byte) {
	t.Helper()
	var mu sync.Mutex
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotHeaders = r.Header.Clone()
		gotBody = body
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotHeaders, &gotBody
}

func TestTransport_EmitsLifecycle(t *testing.T) {
	srv, _, gotBody := newEchoServer(t)
	rec := &recorder{}
	metrics := &fakeMetrics{}
	client := &http.Client{Transport: NewTransport(nil, rec, nil, WithMetrics(metrics))}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/items?x=1", strings.NewReader(`{"name":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.example.com")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	resp.Body.Close()

	want := []traffic.Phase{
		traffic.PhaseBegin,
		traffic.PhaseRequestHeaders,
		traffic.PhaseResponseHeaders,
		traffic.PhaseCompleted,
	}
	got := rec.Phases()
	if len(got) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected phases %v, got %v", want, got)
		}
	}

	begin := rec.begin[0]
	id := begin.RequestID
	if id == "" {
		t.Fatal("expected a request id")
	}
	for _, meta := range []traffic.EventMeta{rec.reqHdr[0].EventMeta, rec.resHdr[0].EventMeta, rec.done[0].EventMeta} {
		if meta.RequestID != id {
			t.Errorf("expected request id %q on every event, got %q", id, meta.RequestID)
		}
		if meta.URL != srv.URL+"/items?x=1" {
			t.Errorf("unexpected url %q", meta.URL)
		}
	}

	if begin.Method != http.MethodPost || begin.Type != traffic.ResourceFetch {
		t.Errorf("unexpected begin event %+v", begin)
	}
	if begin.Initiator != "https://app.example.com" {
		t.Errorf("expected initiator from Origin, got %q", begin.Initiator)
	}
	if begin.Body == nil || string(begin.Body.Raw) != `{"name":"a"}` {
		t.Errorf("expected captured body, got %+v", begin.Body)
	}
	if string(*gotBody) != `{"name":"a"}` {
		t.Errorf("expected upstream to receive the body, got %q", *gotBody)
	}
	if rec.done[0].StatusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.done[0].StatusCode)
	}
	if rec.resHdr[0].Headers["Content-Type"] != "application/json" {
		t.Errorf("expected response headers, got %v", rec.resHdr[0].Headers)
	}
	if rec.reqHdr[0].Headers["Host"] == "" {
		t.Error("expected Host in request headers")
	}
	if metrics.results[ResultSuccess] != 1 {
		t.Errorf("expected one success, got %v", metrics.results)
	}
}

func TestTransport_DistinctIDs(t *testing.T) {
	srv, _, _ := newEchoServer(t)
	rec := &recorder{}
	client := &http.Client{Transport: NewTransport(nil, rec, nil)}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	seen := map[string]bool{}
	for _, ev := range rec.begin {
		seen[ev.RequestID] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct ids, got %d", len(seen))
	}
}

func TestTransport_AppliesOverrideToClone(t *testing.T) {
	srv, gotHeaders, _ := newEchoServer(t)

	rules := override.NewMemoryRuleSet()
	mgr := override.NewManager(rules, nil)
	if err := mgr.SetOverride(context.Background(), srv.URL+"/api?token=1", []override.Header{
		{Key: "Authorization", Value: "Bearer override"},
	}); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	rec := &recorder{}
	client := &http.Client{Transport: NewTransport(nil, rec, nil, WithRules(rules))}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/users", nil)
	req.Header.Set("Authorization", "Bearer original")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := gotHeaders.Get("Authorization"); got != "Bearer override" {
		t.Errorf("expected upstream to see overridden header, got %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer original" {
		t.Errorf("expected caller's request untouched, got %q", got)
	}
	if got := rec.reqHdr[0].Headers["Authorization"]; got != "Bearer override" {
		t.Errorf("expected request headers event to show sent value, got %q", got)
	}
}

func TestTransport_OverrideSkipsNonAPITypes(t *testing.T) {
	srv, gotHeaders, _ := newEchoServer(t)

	rules := override.NewMemoryRuleSet()
	mgr := override.NewManager(rules, nil)
	if err := mgr.SetOverride(context.Background(), srv.URL, []override.Header{
		{Name: "X-Debug", Value: "1"},
	}); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	client := &http.Client{Transport: NewTransport(nil, &recorder{}, nil, WithRules(rules))}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/page", nil)
	req.Header.Set("Sec-Fetch-Dest", "document")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := gotHeaders.Get("X-Debug"); got != "" {
		t.Errorf("expected no override on main_frame, got %q", got)
	}
}

func TestTransport_FailedRequest(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	rec := &recorder{}
	metrics := &fakeMetrics{}
	client := &http.Client{Transport: NewTransport(nil, rec, nil, WithMetrics(metrics))}

	if _, err := client.Get(addr + "/gone"); err == nil {
		t.Fatal("expected request to fail")
	}

	got := rec.Phases()
	if len(got) != 3 || got[2] != traffic.PhaseFailed {
		t.Fatalf("expected begin, headers, failed, got %v", got)
	}
	if rec.failed[0].Error == "" {
		t.Error("expected error text on failed event")
	}
	if metrics.results[ResultError] != 1 {
		t.Errorf("expected one error, got %v", metrics.results)
	}
}

func TestTransport_CloseWithoutReadCompletes(t *testing.T) {
	srv, _, _ := newEchoServer(t)
	rec := &recorder{}
	client := &http.Client{Transport: NewTransport(nil, rec, nil)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if n := len(rec.done); n != 0 {
		t.Fatalf("expected completion to wait for the body, got %d", n)
	}
	resp.Body.Close()
	resp.Body.Close()

	if len(rec.done) != 1 {
		t.Errorf("expected exactly one completion, got %d", len(rec.done))
	}
}

func TestTransport_BodyCapture(t *testing.T) {
	srv, _, gotBody := newEchoServer(t)

	t.Run("truncated prefix", func(t *testing.T) {
		rec := &recorder{}
		client := &http.Client{Transport: NewTransport(nil, rec, &Config{MaxCaptureBytes: 4})}

		resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if got := string(rec.begin[0].Body.Raw); got != "hello" {
			t.Errorf("expected limit+1 bytes captured, got %q", got)
		}
		if !rec.begin[0].Body.Truncated {
			t.Error("expected prefix marked truncated")
		}
		if string(*gotBody) != "hello world" {
			t.Errorf("expected full body forwarded, got %q", *gotBody)
		}
	})

	t.Run("raised limit", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTransport(nil, rec, &Config{MaxCaptureBytes: 4})
		tr.SetMaxCaptureBytes(64)
		if got := tr.MaxCaptureBytes(); got != 64 {
			t.Fatalf("MaxCaptureBytes() = %d, want 64", got)
		}

		client := &http.Client{Transport: tr}
		resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if got := string(rec.begin[0].Body.Raw); got != "hello world" || rec.begin[0].Body.Truncated {
			t.Errorf("expected whole body captured after raise, got %+v", rec.begin[0].Body)
		}
	})

	t.Run("urlencoded form", func(t *testing.T) {
		rec := &recorder{}
		client := &http.Client{Transport: NewTransport(nil, rec, nil)}

		resp, err := client.PostForm(srv.URL, url.Values{"a": {"1", "2"}, "b": {"x"}})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		form := rec.begin[0].Body.FormData
		if len(form["a"]) != 2 || form["b"][0] != "x" {
			t.Errorf("unexpected form data %v", form)
		}
	})

	t.Run("multipart form", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("title", "report")
		fw, _ := mw.CreateFormFile("upload", "data.bin")
		_, _ = fw.Write([]byte{0xff, 0x00})
		mw.Close()

		rec := &recorder{}
		client := &http.Client{Transport: NewTransport(nil, rec, nil)}
		resp, err := client.Post(srv.URL, mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		form := rec.begin[0].Body.FormData
		if form["title"][0] != "report" || form["upload"][0] != "data.bin" {
			t.Errorf("unexpected form data %v", form)
		}
	})

	t.Run("no body", func(t *testing.T) {
		rec := &recorder{}
		client := &http.Client{Transport: NewTransport(nil, rec, nil)}
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if rec.begin[0].Body != nil {
			t.Errorf("expected nil body, got %+v", rec.begin[0].Body)
		}
	})
}

func TestTransport_DefaultInitiator(t *testing.T) {
	srv, _, _ := newEchoServer(t)
	rec := &recorder{}
	client := &http.Client{Transport: NewTransport(nil, rec, &Config{Initiator: "http://cli.local"})}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := rec.begin[0].Initiator; got != "http://cli.local" {
		t.Errorf("expected configured initiator, got %q", got)
	}
}
