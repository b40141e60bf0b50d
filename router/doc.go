// Package router implements the A2A agent registry and message dispatch:
// direct delivery, broadcast fan-out, discovery responses and heartbeat
// bookkeeping.
//
// Delivery follows a single discipline: every message is enqueued into the
// recipient's bounded mailbox. Agents either pull from the mailbox channel
// directly or register a handler, which drains the same mailbox with a
// dedicated goroutine. Backpressure is therefore uniform regardless of how
// an agent consumes.
//
// Routing never returns an error to the caller; every failure mode degrades
// to a false return plus a log line.
package router
