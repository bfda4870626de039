package session

import (
	"testing"

	"github.com/klamm/tracetail/internal/assemble"
)

func TestAnalyzeLines_BatchPipeline(t *testing.T) {
	lines := []string{
		"REQ N-01 R TX001",
		"garbage",
		"REQ N-02 A TX999",
		"REQ N-01 A TX001",
		"REQ N-03 R TX500",
		"",
	}
	res := AnalyzeLines(orderTree(), lines, assemble.Options{})

	if len(res.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(res.Transactions))
	}
	tx := res.Transactions[0]
	if tx.Node != "N-01" || tx.TransactionID != "TX001" || !tx.Complete() {
		t.Fatalf("transaction = %#v, want completed N-01/TX001", tx)
	}

	// The orphan response is a standalone entry; the unanswered request
	// stays pending; the garbage line is dropped; blanks are ignored.
	if len(res.Entries) != 1 || res.Entries[0].Node != "N-02" {
		t.Fatalf("entries = %#v, want only the orphan response", res.Entries)
	}
	if res.Pending != 1 {
		t.Fatalf("pending = %d, want 1", res.Pending)
	}
	if res.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", res.Dropped)
	}
}

func TestAnalyzeLines_EmptyInput(t *testing.T) {
	res := AnalyzeLines(orderTree(), nil, assemble.Options{})
	if len(res.Entries) != 0 || len(res.Transactions) != 0 || res.Pending != 0 || res.Dropped != 0 {
		t.Fatalf("result = %#v, want empty", res)
	}
}
