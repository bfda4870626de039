// Package assemble pairs decoded request lines with their responses into
// transactions keyed by (node, transaction id).
package assemble

import (
	"strings"
	"time"

	"github.com/klamm/tracetail/internal/record"
	"github.com/klamm/tracetail/internal/schema"
)

// DefaultTimeoutThresholdMS flags transactions slower than this when the
// message type does not configure its own threshold.
const DefaultTimeoutThresholdMS = 3000

// Options configure direction and transaction-id discrimination. Zero
// values fall back to the conventional markers.
type Options struct {
	// RequestValues are direction-field values marking a request.
	RequestValues []string
	// ResponseValues are direction-field values marking a response.
	ResponseValues []string
	// TransactionIDFields are tried in order, case-insensitively, to
	// extract the transaction id from an entry's segments.
	TransactionIDFields []string
}

func (o Options) withDefaults() Options {
	if len(o.RequestValues) == 0 {
		o.RequestValues = []string{"R", "REQ", "Input"}
	}
	if len(o.ResponseValues) == 0 {
		o.ResponseValues = []string{"A", "RSP", "Output"}
	}
	if len(o.TransactionIDFields) == 0 {
		o.TransactionIDFields = []string{"txid", "trans_id", "transaction_id"}
	}
	return o
}

type txKey struct {
	node string
	id   string
}

// Assembler owns the pending-transaction table for one tailing session.
// Ingest is incremental: pending requests survive across calls until a
// matching response arrives or Reset clears the session. Duplicate-line
// suppression is the tail window's job, not the assembler's.
type Assembler struct {
	opts      Options
	tree      *schema.Tree
	pending   map[txKey]*record.Transaction
	completed []record.Transaction
	entries   []record.Entry
}

// New builds an assembler against a schema snapshot. The tree supplies
// per-message-type timeout thresholds; nil is allowed.
func New(tree *schema.Tree, opts Options) *Assembler {
	return &Assembler{
		opts:    opts.withDefaults(),
		tree:    tree,
		pending: make(map[txKey]*record.Transaction),
	}
}

// Ingest routes one decoded entry through the pairing state machine.
func (a *Assembler) Ingest(entry record.Entry) {
	isReq := containsFold(a.opts.RequestValues, entry.Direction)
	isResp := !isReq && containsFold(a.opts.ResponseValues, entry.Direction)
	if !isReq && !isResp {
		a.entries = append(a.entries, entry)
		return
	}

	id := a.transactionID(entry)
	if id == "" {
		// No transaction id to correlate on; surface as a plain entry.
		a.entries = append(a.entries, entry)
		return
	}

	key := txKey{node: entry.Node, id: id}
	if isReq {
		if tx, ok := a.pending[key]; ok {
			// Retransmission: last request wins, original timing kept.
			req := entry
			tx.LatestRequest = &req
			return
		}
		req := entry
		a.pending[key] = &record.Transaction{
			Node:          entry.Node,
			TransactionID: id,
			StartTime:     entry.Timestamp,
			LatestRequest: &req,
		}
		return
	}

	tx, ok := a.pending[key]
	if !ok {
		// Response with no matching request: common at the start of a tail
		// window. Emit standalone, never a dangling pending transaction.
		a.entries = append(a.entries, entry)
		return
	}
	resp := entry
	tx.Response = &resp
	a.markTimeout(tx)
	a.completed = append(a.completed, *tx)
	delete(a.pending, key)
}

func (a *Assembler) transactionID(entry record.Entry) string {
	for _, name := range a.opts.TransactionIDFields {
		if seg, ok := entry.Field(name); ok && seg.Value != "" {
			return seg.Value
		}
	}
	return ""
}

func (a *Assembler) markTimeout(tx *record.Transaction) {
	dur, ok := tx.Duration()
	if !ok {
		return
	}
	threshold := DefaultTimeoutThresholdMS
	if a.tree != nil && tx.LatestRequest != nil {
		if mt, ok := a.tree.Get(tx.LatestRequest.MessageType); ok && mt.TimeoutThresholdMS > 0 {
			threshold = mt.TimeoutThresholdMS
		}
	}
	tx.ThresholdMS = threshold
	if dur >= time.Duration(threshold)*time.Millisecond {
		tx.TimedOut = true
	}
}

// DrainCompleted returns the transactions completed since the last drain
// and clears the queue. Pending transactions are retained.
func (a *Assembler) DrainCompleted() []record.Transaction {
	out := a.completed
	a.completed = nil
	return out
}

// DrainEntries returns the standalone entries (unpaired directions, missing
// ids, orphan responses) queued since the last drain.
func (a *Assembler) DrainEntries() []record.Entry {
	out := a.entries
	a.entries = nil
	return out
}

// PendingCount reports how many requests are still awaiting a response.
func (a *Assembler) PendingCount() int {
	return len(a.pending)
}

// Reset clears all pairing state. Called when the session restarts: schema
// change, target change, manual reset, or rotation recovery.
func (a *Assembler) Reset() {
	a.pending = make(map[txKey]*record.Transaction)
	a.completed = nil
	a.entries = nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
