package transaction

import "time"

// Record is created when Frontline forwards a request to the Core
// Router, and removed when the matching answer arrives, the timer
// fires, or the source connection tears down. It captures exactly the
// fields needed to synthesize a 3002 answer without retaining the
// original request body.
type Record struct {
	Key Key

	// TimerHandle is the scheduler's opaque handle for this record's
	// timeout, used for race-free cancellation.
	TimerHandle Handle

	IngressTime time.Time

	SourceConnectionID uint64
	SourcePeerHost     string

	OriginalCommandCode     uint32
	OriginalApplicationID   uint32
	OriginalEndToEndID      uint32
	SessionID               string
	OriginHost              string
	OriginRealm             string

	VRID string
}
