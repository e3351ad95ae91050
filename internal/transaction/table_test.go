package transaction

import "testing"

func TestTable_InsertLookupRemove(t *testing.T) {
	tbl := NewTable()
	k := Key{ConnectionID: 1, HopByHopID: 42}
	r := &Record{Key: k}

	if !tbl.Insert(r) {
		t.Fatalf("Insert() = false, want true for fresh key")
	}
	if tbl.Insert(r) {
		t.Fatalf("Insert() = true, want false for duplicate key")
	}

	got, ok := tbl.Lookup(k)
	if !ok || got != r {
		t.Fatalf("Lookup() = %v, %v; want %v, true", got, ok, r)
	}

	removed, ok := tbl.Remove(k)
	if !ok || removed != r {
		t.Fatalf("Remove() = %v, %v; want %v, true", removed, ok, r)
	}
	if _, ok := tbl.Remove(k); ok {
		t.Fatalf("second Remove() = true, want false")
	}
}

func TestTable_RemoveByConnection(t *testing.T) {
	tbl := NewTable()
	for i := uint32(0); i < 20; i++ {
		tbl.Insert(&Record{Key: Key{ConnectionID: 1, HopByHopID: i}, SourceConnectionID: 1})
	}
	for i := uint32(0); i < 5; i++ {
		tbl.Insert(&Record{Key: Key{ConnectionID: 2, HopByHopID: i}, SourceConnectionID: 2})
	}

	removed := tbl.RemoveByConnection(1)
	if len(removed) != 20 {
		t.Fatalf("RemoveByConnection(1) removed %d, want 20", len(removed))
	}
	if tbl.Len() != 5 {
		t.Fatalf("Len() = %d after teardown, want 5", tbl.Len())
	}
}

func TestTable_ShardingIsDeterministic(t *testing.T) {
	tbl := NewTableShards(8)
	k := Key{ConnectionID: 7, HopByHopID: 99}
	if tbl.shardFor(k) != tbl.shardFor(k) {
		t.Fatalf("shardFor is not deterministic for the same key")
	}
}
