package intercept

import (
	"net/http/httptest"
	"testing"

	"mercator-hq/wiretap/pkg/traffic"
)

func TestResourceTypeOf(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    traffic.ResourceType
	}{
		{name: "bare client", want: traffic.ResourceFetch},
		{name: "fetch", headers: map[string]string{"Sec-Fetch-Dest": "empty"}, want: traffic.ResourceFetch},
		{name: "xhr with fetch metadata", headers: map[string]string{"Sec-Fetch-Dest": "empty", "X-Requested-With": "XMLHttpRequest"}, want: traffic.ResourceXHR},
		{name: "xhr legacy", headers: map[string]string{"X-Requested-With": "XMLHttpRequest"}, want: traffic.ResourceXHR},
		{name: "document", headers: map[string]string{"Sec-Fetch-Dest": "document"}, want: traffic.ResourceMainFrame},
		{name: "iframe", headers: map[string]string{"Sec-Fetch-Dest": "iframe"}, want: traffic.ResourceSubFrame},
		{name: "image", headers: map[string]string{"Sec-Fetch-Dest": "image"}, want: traffic.ResourceImage},
		{name: "unknown dest", headers: map[string]string{"Sec-Fetch-Dest": "hologram"}, want: traffic.ResourceOther},
		{name: "websocket", headers: map[string]string{"Upgrade": "websocket"}, want: traffic.ResourceWebSocket},
		{name: "html accept", headers: map[string]string{"Accept": "text/html,application/xhtml+xml"}, want: traffic.ResourceMainFrame},
		{name: "json accept", headers: map[string]string{"Accept": "application/json"}, want: traffic.ResourceFetch},
		{name: "css accept", headers: map[string]string{"Accept": "text/css,*/*;q=0.1"}, want: traffic.ResourceStylesheet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://api.example.com/v1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ResourceTypeOf(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResourceTypeOf_ContextWins(t *testing.T) {
	req := httptest.NewRequest("GET", "http://api.example.com/v1", nil)
	req.Header.Set("Sec-Fetch-Dest", "document")
	req = req.WithContext(WithResourceType(req.Context(), traffic.ResourceXHR))

	if got := ResourceTypeOf(req); got != traffic.ResourceXHR {
		t.Errorf("expected xmlhttprequest, got %q", got)
	}
}

func TestInitiatorOf(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "none", want: ""},
		{name: "origin", headers: map[string]string{"Origin": "https://app.example.com"}, want: "https://app.example.com"},
		{name: "null origin falls back to referer", headers: map[string]string{"Origin": "null", "Referer": "https://app.example.com/page?q=1"}, want: "https://app.example.com"},
		{name: "referer", headers: map[string]string{"Referer": "http://localhost:3000/dash"}, want: "http://localhost:3000"},
		{name: "relative referer", headers: map[string]string{"Referer": "/dash"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://api.example.com/v1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := InitiatorOf(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
