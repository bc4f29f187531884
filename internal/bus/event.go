package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-namespaced by the owning component:
// "message.*" from the message facade and sync engine,
// "sync.*" from the drain loop, "net.*" from the network monitor,
// "receipt.*" and "reaction.*" from the reconcilers.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
