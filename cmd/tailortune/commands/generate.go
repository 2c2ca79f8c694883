package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/artifact"
	"github.com/satindergrewal/tailortune/internal/batch"
	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/ollama"
	"github.com/satindergrewal/tailortune/internal/preference"
	"github.com/satindergrewal/tailortune/internal/store"
	"github.com/satindergrewal/tailortune/internal/synth"
)

var (
	inputPath      string
	dictionaryPath string
	pairwise       bool
	outDir         string
	backend        string
	failFast       bool
	noProgress     bool
	noLedger       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one track per user",
	Long: `Generate a personalized track for every user in the input table.

Aggregate input has the columns UserID, Genre and "Preference (%)".
Pairwise input (--pairwise) has Subject, TopGenre1 and TopGenre2, where
the genres are integer codes resolved through --dictionary.

A failing user is logged and skipped unless --fail-fast is set.

Examples:
  tailortune generate --input prefs.csv --out output --backend localai
  tailortune generate --pairwise --input subjects.csv --dictionary genres.txt`,
	RunE: runGenerate,
}

func init() {
	addInputFlags(generateCmd)
	generateCmd.Flags().StringVar(&outDir, "out", "", "output root (default $TAILORTUNE_OUTPUT_DIR)")
	generateCmd.Flags().StringVar(&backend, "backend", "", "synthesis backend: acestep, localai, command, tone")
	generateCmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing user")
	generateCmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	generateCmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record the run in the ledger")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "preference CSV (required)")
	cmd.Flags().StringVarP(&dictionaryPath, "dictionary", "d", "", "genre dictionary file (pairwise)")
	cmd.Flags().BoolVar(&pairwise, "pairwise", false, "input is a pairwise favorites table")
	cmd.MarkFlagRequired("input")
}

// loadJobs reads the input table. Any data error aborts before a single
// user is processed.
func loadJobs() ([]batch.Job, error) {
	if !pairwise {
		table, err := preference.LoadFile(inputPath)
		if err != nil {
			return nil, err
		}
		log.Info("Preferences loaded", "path", inputPath, "users", table.Len(), "rows", table.Rows())
		return batch.Jobs(table), nil
	}

	if dictionaryPath == "" {
		return nil, errors.Validation("--pairwise needs --dictionary")
	}
	dict, err := preference.LoadDictionaryFile(dictionaryPath)
	if err != nil {
		return nil, err
	}
	pairs, err := preference.LoadPairsFile(inputPath, dict)
	if err != nil {
		return nil, err
	}
	log.Info("Pairs loaded", "path", inputPath, "subjects", len(pairs), "genres", len(dict))
	return batch.PairJobs(pairs), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if backend != "" {
		cfg.SynthBackend = backend
	}

	jobs, err := loadJobs()
	if err != nil {
		return err
	}

	s, err := synth.New(cfg, log)
	if err != nil {
		return err
	}

	o := &batch.Orchestrator{
		Synth:    s,
		Writer:   artifact.NewWriter(cfg.OutputDir),
		Titler:   newTitler(ctx),
		Logger:   log,
		FailFast: failFast,
		Source:   inputPath,
		Backend:  cfg.SynthBackend,
	}
	if !noProgress {
		o.Progress = os.Stderr
	}
	if !noLedger && cfg.LedgerPath != "" {
		ledger, err := store.Open(cfg.LedgerPath, log)
		if err != nil {
			return err
		}
		defer ledger.Close()
		o.Ledger = ledger
	}

	log.Info("Generating", "users", len(jobs), "backend", cfg.SynthBackend, "out", cfg.OutputDir)
	rep, err := o.Run(ctx, jobs)
	fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d failed", rep.Succeeded, rep.Failed)
	if rep.RunID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (run %s)", rep.RunID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return err
}

// newTitler uses Ollama when configured and reachable, and deterministic
// titles otherwise.
func newTitler(ctx context.Context) batch.Titler {
	if cfg.OllamaURL == "" {
		return ollama.StaticTitler{}
	}
	client := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, log)

	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if !client.Available(readyCtx) {
		log.Warn("Ollama not available, using static titles", "url", cfg.OllamaURL)
		return ollama.StaticTitler{}
	}
	log.Info("Ollama connected", "model", client.Model())
	return ollama.NewTitler(client, log)
}
