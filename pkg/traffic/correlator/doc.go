// Package correlator merges the lifecycle events of one logical request into
// a single record.
//
// Events for a request arrive as separate, possibly concurrent callbacks:
// begin, request headers, response headers, then completed or failed. The
// Correlator keeps a PendingTable of partial records keyed by request id,
// merges each event into its entry and forwards a snapshot to the write
// serializer after every phase. Completed and failed entries are removed
// after a grace delay so that late events still find them.
//
// Events are ignored when recording is off, when their resource type is not
// tracked, or when they originate from the recorder itself.
//
//	c := correlator.New(toggle, serializer, correlator.DefaultConfig())
//	if err := c.Start(); err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	unsubscribe := c.Attach(bus)
//	defer unsubscribe()
package correlator
