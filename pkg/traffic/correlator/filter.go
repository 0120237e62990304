package correlator

import (
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"mercator-hq/wiretap/pkg/traffic"
)

// Rejection reasons reported by Filter.Check.
const (
	ReasonUntracked  = "untracked_type"
	ReasonSelfOrigin = "self_origin"
)

// Filter decides which events are recorded and how request bodies are kept.
// A Filter is immutable once handed to a Correlator.
type Filter struct {
	// TrackedTypes are the resource types that are recorded.
	TrackedTypes []traffic.ResourceType

	// SelfOrigins are initiators whose requests are never recorded,
	// e.g. "http://127.0.0.1:8787".
	SelfOrigins []string

	// SelfHosts are host[:port] values of the recorder's own endpoints.
	SelfHosts []string

	// MaxBodyBytes replaces larger raw bodies with the truncation sentinel.
	// Zero disables the limit.
	MaxBodyBytes int
}

// DefaultFilter returns a filter recording API traffic only.
func DefaultFilter() *Filter {
	return &Filter{
		TrackedTypes: slices.Clone(traffic.APIResourceTypes),
		MaxBodyBytes: 64 * 1024,
	}
}

// Check returns "" when meta should be recorded, or the rejection reason.
func (f *Filter) Check(meta *traffic.EventMeta) string {
	if !slices.Contains(f.TrackedTypes, meta.Type) {
		return ReasonUntracked
	}
	if meta.Initiator != "" {
		initiator := strings.TrimSuffix(meta.Initiator, "/")
		for _, o := range f.SelfOrigins {
			if strings.EqualFold(initiator, strings.TrimSuffix(o, "/")) {
				return ReasonSelfOrigin
			}
		}
	}
	if len(f.SelfHosts) > 0 {
		if u, err := url.Parse(meta.URL); err == nil {
			for _, h := range f.SelfHosts {
				if strings.EqualFold(u.Host, h) {
					return ReasonSelfOrigin
				}
			}
		}
	}
	return ""
}

// DecodeBody converts a raw request body into its stored form. Form data is
// kept as-is, valid UTF-8 becomes text and anything else a sentinel.
func (f *Filter) DecodeBody(raw *traffic.RawBody) *traffic.Body {
	if raw == nil {
		return nil
	}
	if raw.FormData != nil {
		return (&traffic.Body{FormData: raw.FormData}).Clone()
	}
	if raw.Truncated {
		return &traffic.Body{Text: traffic.TruncatedBodySentinel}
	}
	if len(raw.Raw) == 0 {
		return nil
	}
	if f.MaxBodyBytes > 0 && len(raw.Raw) > f.MaxBodyBytes {
		return &traffic.Body{Text: traffic.TruncatedBodySentinel}
	}
	if !utf8.Valid(raw.Raw) {
		return &traffic.Body{Text: traffic.BinaryBodySentinel}
	}
	return &traffic.Body{Text: string(raw.Raw)}
}
