package intercept

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"mercator-hq/wiretap/pkg/traffic"
)

type contextKey string

const resourceTypeKey contextKey = "resource_type"

// WithResourceType marks requests made with ctx as type rt, bypassing
// header based classification.
func WithResourceType(ctx context.Context, rt traffic.ResourceType) context.Context {
	return context.WithValue(ctx, resourceTypeKey, rt)
}

// secFetchDest maps Sec-Fetch-Dest values to resource types. "empty" is
// resolved separately since it covers both XHR and fetch.
var secFetchDest = map[string]traffic.ResourceType{
	"document":      traffic.ResourceMainFrame,
	"iframe":        traffic.ResourceSubFrame,
	"frame":         traffic.ResourceSubFrame,
	"script":        traffic.ResourceScript,
	"worker":        traffic.ResourceScript,
	"sharedworker":  traffic.ResourceScript,
	"serviceworker": traffic.ResourceScript,
	"style":         traffic.ResourceStylesheet,
	"image":         traffic.ResourceImage,
	"font":          traffic.ResourceFont,
	"report":        traffic.ResourcePing,
	"audio":         traffic.ResourceOther,
	"video":         traffic.ResourceOther,
	"track":         traffic.ResourceOther,
	"manifest":      traffic.ResourceOther,
	"object":        traffic.ResourceOther,
	"embed":         traffic.ResourceOther,
	"audioworklet":  traffic.ResourceScript,
	"paintworklet":  traffic.ResourceScript,
	"webidentity":   traffic.ResourceFetch,
	"xslt":          traffic.ResourceOther,
}

// ResourceTypeOf classifies req.
//
// An explicit type set with WithResourceType wins. Otherwise WebSocket
// upgrades, Sec-Fetch-Dest, X-Requested-With and Accept are consulted in
// that order. Requests carrying none of them are programmatic API calls and
// classify as fetch.
func ResourceTypeOf(req *http.Request) traffic.ResourceType {
	if rt, ok := req.Context().Value(resourceTypeKey).(traffic.ResourceType); ok && rt != "" {
		return rt
	}

	if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		return traffic.ResourceWebSocket
	}

	xhr := strings.EqualFold(req.Header.Get("X-Requested-With"), "XMLHttpRequest")

	if dest := strings.ToLower(req.Header.Get("Sec-Fetch-Dest")); dest != "" {
		if dest == "empty" {
			if xhr {
				return traffic.ResourceXHR
			}
			return traffic.ResourceFetch
		}
		if rt, ok := secFetchDest[dest]; ok {
			return rt
		}
		return traffic.ResourceOther
	}

	if xhr {
		return traffic.ResourceXHR
	}

	accept := strings.ToLower(req.Header.Get("Accept"))
	switch {
	case strings.HasPrefix(accept, "text/html"):
		return traffic.ResourceMainFrame
	case strings.HasPrefix(accept, "text/css"):
		return traffic.ResourceStylesheet
	case strings.HasPrefix(accept, "image/"):
		return traffic.ResourceImage
	case strings.HasPrefix(accept, "font/"):
		return traffic.ResourceFont
	}
	return traffic.ResourceFetch
}

// InitiatorOf returns the origin that issued req: the Origin header, else
// the origin of the Referer, else "".
func InitiatorOf(req *http.Request) string {
	if o := req.Header.Get("Origin"); o != "" && o != "null" {
		return strings.TrimSuffix(o, "/")
	}
	if ref := req.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}
