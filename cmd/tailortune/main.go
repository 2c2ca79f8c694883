// Command tailortune generates personalized music clips from listening
// preference tables.
//
// Usage:
//
//	tailortune <command> [flags]
//
// Commands:
//
//	generate  - synthesize one track per user and write its artifacts
//	prompt    - print the prompts a generate run would use
//	dict      - print a parsed genre dictionary
//	finetune  - run a MusicGen fine-tuning job and archive the checkpoints
//	history   - list recorded generation runs
//	preview   - serve and stream the generated tracks
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/satindergrewal/tailortune/cmd/tailortune/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := commands.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
