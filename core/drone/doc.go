// Package drone implements the text command protocol spoken by Tello class
// drones over a single datagram channel.
//
// A Client owns one Transport. Every command goes through a Serializer which
// holds a single-slot gate for the whole send/receive exchange, so replies
// can be attributed to their command without request identifiers. A Poller
// periodically queries the battery through the same gate and keeps the
// latest Telemetry snapshot. Close cancels the connection context, which
// unblocks gate waiters, pending receives and the poller, then releases the
// transport.
//
// Replies that do not match the expected shape are not errors: boolean
// commands report false and numeric queries report NaN. Only transport
// failures, cancellation and use after Close surface as errors.
package drone
