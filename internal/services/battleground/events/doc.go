// Package events publishes committed outbox events.
//
// Admission writes each event to the outbox inside its transaction. The
// Relay drains pending rows through a Publisher and marks them published, so
// delivery is at least once: a crash between publish and mark republishes
// the event on the next drain. Subscribers deduplicate by event id.
package events
