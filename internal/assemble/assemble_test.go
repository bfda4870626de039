package assemble

import (
	"testing"
	"time"

	"github.com/klamm/tracetail/internal/record"
	"github.com/klamm/tracetail/internal/schema"
)

func at(ms int) time.Time {
	return time.Date(2024, time.March, 2, 10, 0, 0, 0, time.Local).Add(time.Duration(ms) * time.Millisecond)
}

func entry(node, dir, txid string, ts time.Time) record.Entry {
	return record.Entry{
		Timestamp:   ts,
		Node:        node,
		Direction:   dir,
		MessageType: "Order",
		Version:     "v1",
		Segments: []record.DecodedField{
			{Name: "txid", Value: txid, Kind: record.KindField},
		},
	}
}

func TestIngest_PairsRequestWithResponse(t *testing.T) {
	a := New(nil, Options{})

	a.Ingest(entry("N1", "R", "TX001", at(0)))
	if a.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", a.PendingCount())
	}
	a.Ingest(entry("N1", "A", "TX001", at(120)))

	completed := a.DrainCompleted()
	if len(completed) != 1 {
		t.Fatalf("completed = %d, want 1", len(completed))
	}
	tx := completed[0]
	if tx.Node != "N1" || tx.TransactionID != "TX001" {
		t.Fatalf("identity = %s/%s, want N1/TX001", tx.Node, tx.TransactionID)
	}
	if !tx.Complete() {
		t.Fatalf("transaction reports incomplete")
	}
	dur, ok := tx.Duration()
	if !ok || dur != 120*time.Millisecond {
		t.Fatalf("duration = (%v, %v), want 120ms", dur, ok)
	}
	if a.PendingCount() != 0 {
		t.Fatalf("pending after pairing = %d, want 0", a.PendingCount())
	}
}

func TestIngest_TransactionIDsAreScopedToNode(t *testing.T) {
	a := New(nil, Options{})

	a.Ingest(entry("N1", "R", "TX001", at(0)))
	a.Ingest(entry("N2", "R", "TX001", at(10)))
	if a.PendingCount() != 2 {
		t.Fatalf("pending = %d, want 2 distinct transactions", a.PendingCount())
	}

	a.Ingest(entry("N2", "A", "TX001", at(50)))
	completed := a.DrainCompleted()
	if len(completed) != 1 || completed[0].Node != "N2" {
		t.Fatalf("completed = %#v, want only N2's transaction", completed)
	}
	if a.PendingCount() != 1 {
		t.Fatalf("pending = %d, want N1 still waiting", a.PendingCount())
	}
}

func TestIngest_RetransmissionKeepsOriginalTiming(t *testing.T) {
	a := New(nil, Options{})

	a.Ingest(entry("N1", "R", "TX001", at(0)))
	retry := entry("N1", "R", "TX001", at(500))
	retry.Raw = "retry"
	a.Ingest(retry)
	if a.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1 after retransmission", a.PendingCount())
	}

	a.Ingest(entry("N1", "A", "TX001", at(600)))
	completed := a.DrainCompleted()
	if len(completed) != 1 {
		t.Fatalf("completed = %d, want 1", len(completed))
	}
	tx := completed[0]
	if tx.LatestRequest == nil || tx.LatestRequest.Raw != "retry" {
		t.Fatalf("latest request = %#v, want the retransmission", tx.LatestRequest)
	}
	dur, ok := tx.Duration()
	if !ok || dur != 600*time.Millisecond {
		t.Fatalf("duration = (%v, %v), want 600ms from the first request", dur, ok)
	}
}

func TestIngest_OrphanResponseBecomesEntry(t *testing.T) {
	a := New(nil, Options{})

	a.Ingest(entry("N1", "A", "TX999", at(0)))
	if a.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0 for an orphan response", a.PendingCount())
	}
	entries := a.DrainEntries()
	if len(entries) != 1 || entries[0].Direction != "A" {
		t.Fatalf("entries = %#v, want the orphan response", entries)
	}
	if got := a.DrainCompleted(); len(got) != 0 {
		t.Fatalf("completed = %#v, want none", got)
	}
}

func TestIngest_NonDirectionalAndIDLessAreEntries(t *testing.T) {
	a := New(nil, Options{})

	plain := entry("N1", "", "TX001", at(0))
	a.Ingest(plain)

	noID := entry("N1", "R", "", at(0))
	noID.Segments = nil
	a.Ingest(noID)

	if a.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", a.PendingCount())
	}
	if entries := a.DrainEntries(); len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

func TestIngest_DirectionMarkersFoldCase(t *testing.T) {
	a := New(nil, Options{
		RequestValues:  []string{"Input"},
		ResponseValues: []string{"Output"},
	})
	a.Ingest(entry("N1", "INPUT", "TX001", at(0)))
	a.Ingest(entry("N1", "output", "TX001", at(40)))
	if got := a.DrainCompleted(); len(got) != 1 {
		t.Fatalf("completed = %d, want 1", len(got))
	}
}

func TestMarkTimeout_UsesMessageTypeThreshold(t *testing.T) {
	tree := &schema.Tree{MessageTypes: []schema.MessageType{
		{Name: "Order", TimeoutThresholdMS: 100},
	}}
	a := New(tree, Options{})

	a.Ingest(entry("N1", "R", "TX001", at(0)))
	a.Ingest(entry("N1", "A", "TX001", at(150)))
	a.Ingest(entry("N1", "R", "TX002", at(0)))
	a.Ingest(entry("N1", "A", "TX002", at(50)))

	completed := a.DrainCompleted()
	if len(completed) != 2 {
		t.Fatalf("completed = %d, want 2", len(completed))
	}
	slow, fast := completed[0], completed[1]
	if !slow.TimedOut || slow.ThresholdMS != 100 {
		t.Fatalf("slow = %#v, want timed out at threshold 100", slow)
	}
	if fast.TimedOut {
		t.Fatalf("fast transaction flagged as timed out")
	}
}

func TestMarkTimeout_DefaultThreshold(t *testing.T) {
	a := New(nil, Options{})
	a.Ingest(entry("N1", "R", "TX001", at(0)))
	a.Ingest(entry("N1", "A", "TX001", at(DefaultTimeoutThresholdMS+1)))

	completed := a.DrainCompleted()
	if len(completed) != 1 {
		t.Fatalf("completed = %d, want 1", len(completed))
	}
	if !completed[0].TimedOut || completed[0].ThresholdMS != DefaultTimeoutThresholdMS {
		t.Fatalf("transaction = %#v, want default threshold timeout", completed[0])
	}
}

func TestDrain_IsExactlyOnce(t *testing.T) {
	a := New(nil, Options{})
	a.Ingest(entry("N1", "R", "TX001", at(0)))
	a.Ingest(entry("N1", "A", "TX001", at(10)))
	a.Ingest(entry("N1", "", "", at(20)))

	if got := a.DrainCompleted(); len(got) != 1 {
		t.Fatalf("first drain = %d, want 1", len(got))
	}
	if got := a.DrainCompleted(); len(got) != 0 {
		t.Fatalf("second drain = %d, want 0", len(got))
	}
	if got := a.DrainEntries(); len(got) != 1 {
		t.Fatalf("first entries drain = %d, want 1", len(got))
	}
	if got := a.DrainEntries(); len(got) != 0 {
		t.Fatalf("second entries drain = %d, want 0", len(got))
	}
}

func TestReset_ClearsAllState(t *testing.T) {
	a := New(nil, Options{})
	a.Ingest(entry("N1", "R", "TX001", at(0)))
	a.Ingest(entry("N1", "", "", at(5)))
	a.Reset()

	if a.PendingCount() != 0 {
		t.Fatalf("pending after reset = %d, want 0", a.PendingCount())
	}
	if got := a.DrainEntries(); len(got) != 0 {
		t.Fatalf("entries after reset = %d, want 0", len(got))
	}

	// A response to a pre-reset request is now an orphan.
	a.Ingest(entry("N1", "A", "TX001", at(100)))
	if got := a.DrainCompleted(); len(got) != 0 {
		t.Fatalf("completed after reset = %d, want 0", len(got))
	}
	if got := a.DrainEntries(); len(got) != 1 {
		t.Fatalf("orphan entries = %d, want 1", len(got))
	}
}

func TestTransactionID_TriesConfiguredFieldsInOrder(t *testing.T) {
	a := New(nil, Options{TransactionIDFields: []string{"order_ref", "txid"}})

	e := entry("N1", "R", "TX001", at(0))
	e.Segments = append(e.Segments, record.DecodedField{Name: "order_ref", Value: "OR-9"})
	a.Ingest(e)

	resp := entry("N1", "A", "", at(10))
	resp.Segments = []record.DecodedField{{Name: "order_ref", Value: "OR-9"}}
	a.Ingest(resp)

	completed := a.DrainCompleted()
	if len(completed) != 1 || completed[0].TransactionID != "OR-9" {
		t.Fatalf("completed = %#v, want one transaction keyed OR-9", completed)
	}
}
