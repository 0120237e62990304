// The server wires the control API and the forward proxy onto their own
// listeners.
//
// # Control listener
//
// Routes on server.listen_address (default 127.0.0.1:8787):
//
//	/api/v1/...   control API (see package control)
//	/health       liveness
//	/ready        readiness: storage reachable, save queue not backed up
//	/version      build information
//	/metrics      Prometheus metrics
//
// The chain is Recovery, Logging, RequestID, optional tracing and CORS, in
// that order from the outside in.
//
// # Proxy listener
//
// When proxy.enabled is set, proxy.listen_address (default 127.0.0.1:8788)
// serves the forward proxy with no middleware, so relayed requests reach the
// upstream exactly as the client sent them apart from override rules.
//
// # Usage
//
//	srv := server.New(cfg, control.NewHandler(dispatcher),
//	    server.WithProxy(intercept.NewProxy(transport, cfg.Proxy.UpstreamTimeout)),
//	    server.WithHealth(checker, health.VersionInfo{Version: version}),
//	    server.WithMetrics(collector),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
