package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klamm/tracetail/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	address := flag.String("address", "", "device address, e.g. 10.0.0.5:8080 (overrides config)")
	category := flag.String("category", "", "remote log category to tail")
	object := flag.String("object", "", "remote log object to tail")
	pollSeconds := flag.Int("poll", 0, "poll interval in seconds (optional, defaults to 2s)")
	noColor := flag.Bool("no-color", false, "disable terminal styling")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		Address:    *address,
		Category:   *category,
		Object:     *object,
		NoColor:    *noColor,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "tracetail: %v\n", err)
		return 1
	}
	return 0
}
