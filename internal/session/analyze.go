package session

import (
	"sort"
	"time"

	"github.com/klamm/tracetail/internal/assemble"
	"github.com/klamm/tracetail/internal/decode"
	"github.com/klamm/tracetail/internal/record"
	"github.com/klamm/tracetail/internal/schema"
)

// AnalysisResult is the outcome of a one-shot batch analysis.
type AnalysisResult struct {
	// Entries are standalone decoded lines, time-ordered.
	Entries []record.Entry
	// Transactions are completed request/response pairs, time-ordered.
	Transactions []record.Transaction
	// Pending counts requests that never saw a response in the batch.
	Pending int
	// Dropped counts lines no schema version classified.
	Dropped int
}

// AnalyzeLines runs the classify→decode→assemble pipeline over an
// already-materialized set of lines, with no tail window involved: the
// offline counterpart of a live session, used for downloaded log files.
func AnalyzeLines(tree *schema.Tree, lines []string, opts assemble.Options) AnalysisResult {
	dec := decode.NewDecoder(tree)
	asm := assemble.New(tree, opts)

	entries, dropped := dec.Lines(lines)
	for _, e := range entries {
		asm.Ingest(e)
	}

	result := AnalysisResult{
		Entries:      asm.DrainEntries(),
		Transactions: asm.DrainCompleted(),
		Pending:      asm.PendingCount(),
		Dropped:      dropped,
	}
	sort.SliceStable(result.Entries, func(i, j int) bool {
		return earlier(result.Entries[i].Timestamp, result.Entries[j].Timestamp)
	})
	sort.SliceStable(result.Transactions, func(i, j int) bool {
		return earlier(result.Transactions[i].StartTime, result.Transactions[j].StartTime)
	})
	return result
}

func earlier(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return a.Before(b)
}
