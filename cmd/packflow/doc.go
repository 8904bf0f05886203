// Package main hosts the packflow CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the daemon (`run`), hot-folder
// deposits (`add`), catalog inspection (`list`, `status`), error recovery
// (`retry`, `remove`), and configuration scaffolding (`config`). It
// centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
package main
