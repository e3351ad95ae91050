// Package transaction owns the Frontline's in-memory transaction table
// and timeout scheduler: the per-request bookkeeping that lets a timer
// firing or a late answer arriving race safely against each other, and
// that lets a 3002 answer be synthesized from captured header fields
// without the original request body.
package transaction

import "fmt"

// Key identifies one outstanding transaction. The hop-by-hop id is only
// unique within a single transport connection (RFC 6733 §6.2), so it is
// paired with the connection it arrived on.
type Key struct {
	ConnectionID uint64
	HopByHopID   uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.ConnectionID, k.HopByHopID)
}

// shard picks one of n table shards for k, spreading load across
// connections so two connections never contend on the same lock.
func (k Key) shard(n uint32) uint32 {
	h := uint64(k.ConnectionID)*31 + uint64(k.HopByHopID)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return uint32(h) % n
}
