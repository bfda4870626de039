package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/klamm/tracetail/internal/assemble"
	"github.com/klamm/tracetail/internal/config"
	"github.com/klamm/tracetail/internal/logtail"
	"github.com/klamm/tracetail/internal/remote"
	"github.com/klamm/tracetail/internal/render"
	"github.com/klamm/tracetail/internal/schema"
	"github.com/klamm/tracetail/internal/session"
)

// Options configure one tracetail run.
type Options struct {
	ConfigPath string
	Address    string // overrides the configured device address
	Category   string
	Object     string
	PollEvery  int // seconds; zero uses the configured or default interval
	NoColor    bool
}

// Run tails one remote log object until the context is cancelled, printing
// each decoded entry and completed transaction as it arrives.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if cfg.Address == "" {
		return fmt.Errorf("no device address configured (set address in the config or pass -address)")
	}
	if opts.Category == "" || opts.Object == "" {
		return fmt.Errorf("both -category and -object are required")
	}

	repo, err := schema.NewRepository(cfg.SchemaDir)
	if err != nil {
		return fmt.Errorf("open schema dir: %w", err)
	}
	tree, err := repo.LoadTree(cfg.Factory, cfg.System)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	store := schema.NewStore(tree)

	// External schema edits reach the running session via the store.
	go func() {
		if err := schema.Watch(ctx, repo, store, cfg.Factory, cfg.System); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "schema watch stopped: %v\n", err)
		}
	}()

	client, err := remote.NewClient(cfg.Address, cfg.Alias)
	if err != nil {
		return fmt.Errorf("init device client: %w", err)
	}

	interval := time.Duration(cfg.PollSeconds) * time.Second
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	sessOpts := session.Options{
		Tail: logtail.Config{
			Category:     opts.Category,
			Object:       opts.Object,
			WindowBytes:  cfg.WindowBytes,
			OverlapBytes: cfg.OverlapBytes,
			Lookback:     cfg.Lookback,
		},
		Assemble:     assemble.Options{},
		DisplayLimit: cfg.DisplayLimit,
		Interval:     interval,
		Sink:         func(text string) { fmt.Println(text) },
	}
	if !opts.NoColor {
		sessOpts.Renderer = render.NewRenderer(render.DefaultStyles())
	}

	sess := session.New(client, store, sessOpts)
	sess.Start(ctx)
	<-ctx.Done()
	sess.Stop()
	return nil
}
