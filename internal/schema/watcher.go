package schema

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads a store from the repository whenever the backing file for
// (factory, system) changes on disk. The configuration collaborator edits
// schema files out of process; bumping the store revision here is what
// invalidates active decode sessions against a stale tree.
//
// Watch blocks until the context is cancelled.
func Watch(ctx context.Context, repo *Repository, store *Store, factory, system string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(repo.dir); err != nil {
		return err
	}
	target := filepath.Base(repo.Path(factory, system))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			// Atomic saves land as Create (rename over the target).
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			tree, err := repo.LoadTree(factory, system)
			if err != nil {
				// Likely caught a partial write from a non-atomic editor;
				// keep the previous tree and wait for the next event.
				log.Printf("schema reload failed for %s/%s: %v", factory, system, err)
				continue
			}
			if err := store.Replace(tree); err != nil {
				log.Printf("schema replace failed for %s/%s: %v", factory, system, err)
				continue
			}
			log.Printf("schema reloaded for %s/%s", factory, system)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("schema watcher error: %v", err)
		}
	}
}
