// Package app wires configuration, the schema store and watcher, the
// device client, and one live session into a runnable tail. It owns the
// lifecycle: everything it starts is cancelled through the run context.
package app
