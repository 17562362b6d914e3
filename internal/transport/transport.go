// SPDX-License-Identifier: MIT
/*
Package transport publishes detection results to external consumers. The
REST and display layers live outside this repository; they attach through
the Transport interface and the monitor snapshot types, never through live
detector state.
*/
package transport

import "tempo/internal/monitor"

// Transport sends processed detection data or events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// ResultSource supplies monitor snapshots for publishing. The monitor
// Manager satisfies it.
type ResultSource interface {
	List() []monitor.Entry
}
