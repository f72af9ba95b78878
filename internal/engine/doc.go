// Package engine talks to the remote checking service.
//
// # Sessions
//
// A Session owns one websocket connection. Run pulls a task from its source,
// dials, and walks each task through the exchange:
//
//	socket-opened    --start-->     conn-established  (text submitted)
//	conn-established --submit_ot--> submit-confirmed
//	submit-confirmed --alert-->     submit-confirmed  (alert accumulated)
//	submit-confirmed --finished-->  task completed
//
// After a task completes, the session pulls the next one and sends a fresh
// handshake on the same connection. When the source is empty it closes with
// normal closure. "emotions" messages are ignored in every state. Any other
// message that does not fit the state, an explicit error, or a transport
// failure closes the connection with going-away; the ProtocolErrorPolicy then
// decides whether the in-flight task completes with a failed result or stays
// pending. A blocked sync caller is released either way.
//
// # Authentication
//
// AuthCache issues an anonymous credential with one HTTP GET and reuses it
// for a fixed TTL. A failed exchange still produces a credential, with empty
// session fields, so the following handshake is what surfaces the failure.
//
// # Offsets
//
// The service reports highlight offsets in UTF-16 code units. Alerts are
// converted to byte offsets of the submitted text before they leave the
// package.
package engine
