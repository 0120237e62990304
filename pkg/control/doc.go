// Package control implements the recorder's control plane: messages that
// set or clear the header override, toggle recording and read or clear the
// record log.
//
// A Dispatcher executes messages against the override manager, the
// recording toggle and the record log. Handler exposes it over HTTP with
// chi, both as a single message endpoint and as REST aliases. Client is the
// counterpart used by the CLI.
//
// Every message is answered with {"success": bool, "error"?: string} plus
// type specific fields. Clearing the log runs through the write serializer
// so it is ordered with respect to pending saves.
package control
