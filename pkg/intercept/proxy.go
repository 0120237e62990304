package intercept

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"
)

// Proxy is a forward HTTP proxy. Every request it relays goes through the
// interception transport, so it is observed and subject to override rules.
//
// CONNECT tunnels are refused: TLS traffic cannot be observed without
// terminating it.
type Proxy struct {
	reverse *httputil.ReverseProxy
	timeout time.Duration
	logger  *slog.Logger
}

// NewProxy creates a forward proxy sending requests through rt. A positive
// timeout bounds each relayed exchange, response body included.
func NewProxy(rt http.RoundTripper, timeout time.Duration) *Proxy {
	p := &Proxy{
		timeout: timeout,
		logger:  slog.Default().With("component", "intercept.proxy"),
	}
	p.reverse = &httputil.ReverseProxy{
		Transport: rt,
		Rewrite: func(pr *httputil.ProxyRequest) {
			u := *pr.In.URL
			pr.Out.URL = &u
			pr.Out.Host = ""
		},
		ErrorHandler: p.handleError,
	}
	return p
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		http.Error(w, "CONNECT tunneling is not supported", http.StatusMethodNotAllowed)
		return
	}
	if !r.URL.IsAbs() || r.URL.Host == "" {
		http.Error(w, "proxy requests must use an absolute URI", http.StatusBadRequest)
		return
	}
	if r.URL.Scheme != "http" && r.URL.Scheme != "https" {
		http.Error(w, "unsupported scheme "+r.URL.Scheme, http.StatusBadRequest)
		return
	}

	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	p.reverse.ServeHTTP(w, r)
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.WarnContext(r.Context(), "upstream request failed",
		"method", r.Method,
		"host", r.URL.Host,
		"error", err,
	)
	w.WriteHeader(http.StatusBadGateway)
}
