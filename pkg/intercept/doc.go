// Package intercept is the interception layer that feeds the traffic
// recorder with request lifecycle events.
//
// # Components
//
//   - Bus: in-process traffic.EventSource. Producers call its On* methods,
//     consumers Subscribe. Subscriber panics are contained.
//   - Transport: http.RoundTripper that mints a UUID per request, buffers a
//     bounded prefix of the body, applies override rules to a clone of the
//     request and emits begin, request headers, response headers and
//     completed or failed events.
//   - Proxy: forward HTTP proxy relaying absolute-URI requests through a
//     Transport.
//
// # Resource types
//
// Requests are classified from Sec-Fetch-Dest, X-Requested-With and Accept.
// Go clients can force a type with WithResourceType:
//
//	ctx = intercept.WithResourceType(ctx, traffic.ResourceXHR)
//
// # Usage
//
//	bus := intercept.NewBus()
//	unsubscribe := corr.Attach(bus)
//	defer unsubscribe()
//
//	client := &http.Client{
//	    Transport: intercept.NewTransport(nil, bus, nil, intercept.WithRules(rules)),
//	}
package intercept
