// Package middleware provides HTTP middleware for the control API.
//
// # Middleware Chain
//
//	handler = Recovery(Logging(RequestID(CORS(handler))))
//
// Order (innermost to outermost):
//  1. CORS: Cross-Origin Resource Sharing for browser log viewers
//  2. RequestID: generate and propagate X-Request-ID
//  3. Logging: log method, path, status and latency
//  4. Recovery: recover from panics, return a JSON 500
//
// The server adds tracing.Middleware inside the chain when tracing is enabled.
//
// # Request ID
//
// RequestIDMiddleware stores the ID with logging.WithRequestID, so every log
// line written with the request context carries request_id.
//
// The forward proxy listener does not use this chain: relayed requests must
// reach the upstream unmodified.
package middleware
