package traffic

import (
	"context"
	"time"
)

// ResourceType classifies an outbound request the way the interception layer
// reports it. Only API types are recorded and subject to header overrides.
type ResourceType string

const (
	ResourceXHR        ResourceType = "xmlhttprequest"
	ResourceFetch      ResourceType = "fetch"
	ResourceMainFrame  ResourceType = "main_frame"
	ResourceSubFrame   ResourceType = "sub_frame"
	ResourceScript     ResourceType = "script"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceFont       ResourceType = "font"
	ResourcePing       ResourceType = "ping"
	ResourceWebSocket  ResourceType = "websocket"
	ResourceOther      ResourceType = "other"
)

// APIResourceTypes are the resource types recorded by default.
var APIResourceTypes = []ResourceType{ResourceXHR, ResourceFetch}

// Body sentinels stored in place of a request body that cannot be kept as text.
const (
	BinaryBodySentinel    = "[Binary Data]"
	TruncatedBodySentinel = "[Body Truncated]"
)

// Body is a decoded request body. At most one of Text and FormData is set.
type Body struct {
	Text     string              `json:"text,omitempty"`
	FormData map[string][]string `json:"formData,omitempty"`
}

// Clone returns a deep copy of the body.
func (b *Body) Clone() *Body {
	if b == nil {
		return nil
	}
	c := &Body{Text: b.Text}
	if b.FormData != nil {
		c.FormData = make(map[string][]string, len(b.FormData))
		for k, v := range b.FormData {
			c.FormData[k] = append([]string(nil), v...)
		}
	}
	return c
}

// RequestRecord is the merged view of one logical outbound request.
type RequestRecord struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Type            ResourceType      `json:"type"`
	Timestamp       time.Time         `json:"timestamp"`
	StatusCode      int               `json:"statusCode"`
	RequestHeaders  map[string]string `json:"requestHeaders"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
	RequestBody     *Body             `json:"requestBody,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// NewRecord returns an empty record for id created at now.
func NewRecord(id string, now time.Time) *RequestRecord {
	return &RequestRecord{
		ID:              id,
		Timestamp:       now,
		RequestHeaders:  map[string]string{},
		ResponseHeaders: map[string]string{},
	}
}

// Pending reports whether the request has neither a final status nor an error.
func (r *RequestRecord) Pending() bool {
	return r.StatusCode == 0 && r.Error == ""
}

// Clone returns a deep copy of the record.
func (r *RequestRecord) Clone() *RequestRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.RequestHeaders = cloneHeaders(r.RequestHeaders)
	c.ResponseHeaders = cloneHeaders(r.ResponseHeaders)
	c.RequestBody = r.RequestBody.Clone()
	return &c
}

// Merge folds src into r without discarding fields r already holds.
//
// Scalars are overwritten only by non-empty values, so a status code never
// reverts to 0. Header maps are merged key-wise and the earliest timestamp wins.
func (r *RequestRecord) Merge(src *RequestRecord) {
	if src == nil {
		return
	}
	if src.URL != "" {
		r.URL = src.URL
	}
	if src.Method != "" {
		r.Method = src.Method
	}
	if src.Type != "" {
		r.Type = src.Type
	}
	if !src.Timestamp.IsZero() && (r.Timestamp.IsZero() || src.Timestamp.Before(r.Timestamp)) {
		r.Timestamp = src.Timestamp
	}
	if src.StatusCode != 0 {
		r.StatusCode = src.StatusCode
	}
	if src.Error != "" {
		r.Error = src.Error
	}
	if src.RequestBody != nil {
		r.RequestBody = src.RequestBody.Clone()
	}
	r.RequestHeaders = mergeHeaders(r.RequestHeaders, src.RequestHeaders)
	r.ResponseHeaders = mergeHeaders(r.ResponseHeaders, src.ResponseHeaders)
}

func cloneHeaders(h map[string]string) map[string]string {
	c := make(map[string]string, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

func mergeHeaders(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Phase names one step of a request's lifecycle.
type Phase string

const (
	PhaseBegin           Phase = "begin"
	PhaseRequestHeaders  Phase = "request_headers"
	PhaseResponseHeaders Phase = "response_headers"
	PhaseCompleted       Phase = "completed"
	PhaseFailed          Phase = "failed"
)

// EventMeta is carried by every lifecycle event.
type EventMeta struct {
	// RequestID correlates the events of one logical request.
	RequestID string

	// URL of the request. Later phases may repeat it.
	URL string

	// Type is the resource type reported by the interception layer.
	Type ResourceType

	// Initiator is the origin that issued the request, if known.
	Initiator string

	// Time the event was observed. Zero means "now" to the consumer.
	Time time.Time
}

// RawBody is the request body as observed by the interception layer,
// either as raw bytes or as parsed form fields.
type RawBody struct {
	Raw      []byte
	FormData map[string][]string

	// Truncated is set when Raw holds only a prefix of the body.
	Truncated bool
}

// BeginEvent reports that a request is about to be sent.
type BeginEvent struct {
	EventMeta
	Method string
	Body   *RawBody
}

// HeadersEvent reports request headers sent or response headers received.
type HeadersEvent struct {
	EventMeta
	Headers map[string]string
}

// CompletedEvent reports a request that finished with a status code.
type CompletedEvent struct {
	EventMeta
	StatusCode int
}

// FailedEvent reports a request that failed at the network level.
type FailedEvent struct {
	EventMeta
	Error string
}

// Handler consumes lifecycle events. Implementations must tolerate events
// arriving concurrently and out of order.
type Handler interface {
	OnRequestBegin(ctx context.Context, ev *BeginEvent)
	OnRequestHeaders(ctx context.Context, ev *HeadersEvent)
	OnResponseHeaders(ctx context.Context, ev *HeadersEvent)
	OnRequestCompleted(ctx context.Context, ev *CompletedEvent)
	OnRequestFailed(ctx context.Context, ev *FailedEvent)
}

// EventSource is the subscription interface to a host interception layer.
type EventSource interface {
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())
}
