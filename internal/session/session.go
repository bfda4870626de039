package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/klamm/tracetail/internal/assemble"
	"github.com/klamm/tracetail/internal/decode"
	"github.com/klamm/tracetail/internal/logtail"
	"github.com/klamm/tracetail/internal/record"
	"github.com/klamm/tracetail/internal/remote"
	"github.com/klamm/tracetail/internal/render"
	"github.com/klamm/tracetail/internal/schema"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultFetchTimeout = 5 * time.Second
	defaultDisplayLimit = 400
	bufferFloor         = 2000
	bufferFactor        = 4
	maxBackoff          = 30 * time.Second
)

// Options configure one online session.
type Options struct {
	// Tail identifies the remote object and tunes the byte window.
	Tail logtail.Config
	// Assemble tunes direction markers and transaction id extraction.
	Assemble assemble.Options
	// DisplayLimit is the default line count for views; it also sizes the
	// retained buffers.
	DisplayLimit int
	// Interval between polls; FetchTimeout bounds each remote read.
	Interval     time.Duration
	FetchTimeout time.Duration
	// Renderer colorizes parsed items; nil renders plain text.
	Renderer *render.Renderer
	// Sink, when set, receives each parsed item's text as it is retained.
	Sink func(text string)
}

func (o Options) withDefaults() Options {
	if o.DisplayLimit <= 0 {
		o.DisplayLimit = defaultDisplayLimit
	}
	if o.Interval <= 0 {
		o.Interval = defaultPollInterval
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	return o
}

// bufferCap bounds the retained buffers regardless of session lifetime.
func (o Options) bufferCap() int {
	if c := o.DisplayLimit * bufferFactor; c > bufferFloor {
		return c
	}
	return bufferFloor
}

// Item is one decoded unit in the parsed buffer: an entry or a completed
// transaction, already rendered to a display string.
type Item struct {
	Time        time.Time
	Text        string
	Transaction bool
}

// Session drives one tail target: fetch, merge, decode, assemble, retain.
// All poll work runs strictly sequentially; the mutex only guards the
// retained state from View callers against the poll goroutine. The window,
// assembler, and decoder are confined to the poll path and never touched
// under the mutex from other goroutines: View reads the mirrored cursor,
// and Reset defers the window and pairing reset to the next poll.
type Session struct {
	src   remote.Source
	store *schema.Store
	opts  Options

	// Poll-path state, only touched from Poll.
	window *logtail.Window
	asm    *assemble.Assembler
	dec    *decode.Decoder
	rev    uint64

	mu             sync.Mutex
	raw            []string
	parsed         []Item
	cursor         int64
	lastErr        error
	failures       int
	rotated        bool
	lastPoll       time.Time
	resetRequested bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a session over a schema store and a remote source.
func New(src remote.Source, store *schema.Store, opts Options) *Session {
	opts = opts.withDefaults()
	tree, rev := store.Snapshot()
	return &Session{
		src:    src,
		store:  store,
		opts:   opts,
		window: logtail.NewWindow(opts.Tail),
		asm:    assemble.New(tree, opts.Assemble),
		dec:    decode.NewDecoder(tree),
		rev:    rev,
		cursor: -1,
	}
}

// Poll performs one fetch→merge→decode→assemble round. Cursor state and
// buffers only change on a successful read; a failed poll records the
// error and leaves the last good view intact.
func (s *Session) Poll(ctx context.Context) error {
	s.takeReset()
	s.refreshSchema()

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	res, err := s.window.Fetch(fetchCtx, s.src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = time.Now()
	if err != nil {
		s.lastErr = err
		s.failures++
		return err
	}
	s.lastErr = nil
	s.failures = 0
	s.cursor = res.Cursor

	if res.Rotated {
		// The raw buffer was rebuilt from the new tail; pending
		// transactions referenced the discarded object and are cleared
		// with it.
		s.rotated = true
		s.asm.Reset()
		s.raw = nil
	}

	if len(res.NewLines) == 0 {
		return nil
	}
	s.raw = append(s.raw, res.NewLines...)
	if overflow := len(s.raw) - s.opts.bufferCap(); overflow > 0 {
		s.raw = append([]string(nil), s.raw[overflow:]...)
	}

	entries, _ := s.dec.Lines(res.NewLines)
	for _, e := range entries {
		s.asm.Ingest(e)
	}
	for _, e := range s.asm.DrainEntries() {
		s.retain(Item{Time: e.Timestamp, Text: s.renderEntry(e)})
	}
	for _, tx := range s.asm.DrainCompleted() {
		s.retain(Item{Time: tx.StartTime, Text: s.renderTransaction(tx), Transaction: true})
	}
	if overflow := len(s.parsed) - s.opts.bufferCap(); overflow > 0 {
		s.parsed = append([]Item(nil), s.parsed[overflow:]...)
	}
	return nil
}

func (s *Session) retain(item Item) {
	s.parsed = append(s.parsed, item)
	if s.opts.Sink != nil {
		s.opts.Sink(item.Text)
	}
}

func (s *Session) renderEntry(e record.Entry) string {
	if s.opts.Renderer != nil {
		return s.opts.Renderer.Entry(e)
	}
	return render.FormatEntry(e)
}

func (s *Session) renderTransaction(t record.Transaction) string {
	if s.opts.Renderer != nil {
		return s.opts.Renderer.Transaction(t)
	}
	return render.FormatTransaction(t)
}

// refreshSchema re-snapshots the tree when the configuration collaborator
// has edited it, invalidating decode and pairing state built against the
// stale revision.
func (s *Session) refreshSchema() {
	if s.store.Revision() == s.rev {
		return
	}
	tree, rev := s.store.Snapshot()
	s.rev = rev
	s.dec = decode.NewDecoder(tree)
	s.asm = assemble.New(tree, s.opts.Assemble)
	log.Printf("schema changed (revision %d), session pairing state reset", rev)
}

// Reset clears buffers, pairing state, and the tail cursor; the next poll
// tails fresh from the remote end. The window and assembler belong to the
// poll path and may be mid-fetch, so their reset is deferred to the next
// poll rather than applied here.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetRequested = true
	s.raw = nil
	s.parsed = nil
	s.cursor = -1
	s.lastErr = nil
	s.failures = 0
	s.rotated = false
}

// takeReset applies a reset requested while a previous poll was in flight.
// Runs at the top of Poll, so the window and assembler stay confined to
// the poll path.
func (s *Session) takeReset() {
	s.mu.Lock()
	requested := s.resetRequested
	s.resetRequested = false
	s.mu.Unlock()
	if requested {
		s.window.Reset()
		s.asm.Reset()
	}
}

// Start launches the poll loop. Polls are strictly sequential: the next
// tick is not armed until the previous poll returns, so there is never
// more than one in-flight fetch per session.
func (s *Session) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			if err := s.Poll(runCtx); err != nil && runCtx.Err() == nil {
				log.Printf("poll failed: %v", err)
			}
			s.mu.Lock()
			wait := calculateBackoff(s.failures, s.opts.Interval)
			s.mu.Unlock()

			timer := time.NewTimer(wait)
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// Stop cancels the poll loop and blocks until the in-flight poll has
// finished; once Stop returns no further buffer mutation occurs.
func (s *Session) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// calculateBackoff doubles the base interval per consecutive failure,
// capped at maxBackoff, so an unreachable device is not hammered on every
// tick.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
