package transaction

import "sync"

const defaultShardCount = 64

// Table is the concurrent transaction map keyed by Key, sharded to keep
// two connections' traffic from contending on the same lock (§5,
// §9: "sharded concurrent map keyed by hop-by-hop id hashed with
// connection id"). No iteration happens on the fast path; Insert,
// Remove, and Lookup are all O(1).
type Table struct {
	shards []*shard
	n      uint32
}

type shard struct {
	mu      sync.Mutex
	records map[Key]*Record
}

// NewTable builds a Table with the default shard count.
func NewTable() *Table {
	return NewTableShards(defaultShardCount)
}

// NewTableShards builds a Table with an explicit shard count, mainly
// for tests that want to exercise single-shard contention.
func NewTableShards(n uint32) *Table {
	if n == 0 {
		n = 1
	}
	t := &Table{shards: make([]*shard, n), n: n}
	for i := range t.shards {
		t.shards[i] = &shard{records: make(map[Key]*Record)}
	}
	return t
}

func (t *Table) shardFor(k Key) *shard {
	return t.shards[k.shard(t.n)]
}

// Insert adds r under r.Key. It returns false without modifying the
// table if a record already occupies that key — a reused hop-by-hop id
// within one connection is a protocol violation (§4.1), not silently
// overwritten.
func (t *Table) Insert(r *Record) bool {
	s := t.shardFor(r.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.Key]; exists {
		return false
	}
	s.records[r.Key] = r
	return true
}

// Remove deletes and returns the record at k, if present.
func (t *Table) Remove(k Key) (*Record, bool) {
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	if ok {
		delete(s.records, k)
	}
	return r, ok
}

// Lookup returns the record at k without removing it.
func (t *Table) Lookup(k Key) (*Record, bool) {
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	return r, ok
}

// RemoveByConnection removes and returns every record whose
// SourceConnectionID matches connID — used on connection teardown (§4.1)
// where bulk removal replaces the single-key path. This is the one
// operation allowed to iterate: it only runs on the rare teardown path,
// never per-message.
func (t *Table) RemoveByConnection(connID uint64) []*Record {
	var out []*Record
	for _, s := range t.shards {
		s.mu.Lock()
		for k, r := range s.records {
			if r.SourceConnectionID == connID {
				out = append(out, r)
				delete(s.records, k)
			}
		}
		s.mu.Unlock()
	}
	return out
}

// Len returns the total number of outstanding records, for metrics.
func (t *Table) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.Lock()
		total += len(s.records)
		s.mu.Unlock()
	}
	return total
}
