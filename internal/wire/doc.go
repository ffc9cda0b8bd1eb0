// Package wire implements the daemon's framed message transport: a 4-byte
// big-endian length prefix followed by a JSON-encoded envelope. It
// generalizes the admin socket's original one-shot newline-delimited JSON
// exchange into a transport that can carry many messages (header, chunk,
// control, event) over one long-lived connection, which the deploy and
// self-update streams both need.
package wire
