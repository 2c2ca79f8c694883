package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/config"
	"github.com/satindergrewal/tailortune/internal/logger"
)

var (
	// Global flags
	envFile  string
	logLevel string
	verbose  bool

	// Set by the root pre-run hook.
	cfg config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tailortune",
	Short: "Personalized music generation from listening preferences",
	Long: `tailortune turns listening-preference tables into personalized music.

For every user it classifies a mood from their weighted genres, builds a
text prompt, synthesizes a clip with a text-to-audio backend and writes
music.wav, spectrogram.png, preferences.png and track.json into
<out>/user_<id>/.

Configuration comes from TAILORTUNE_* environment variables (a .env file
is loaded first) and can be overridden with flags.

Examples:
  # Aggregate preferences with the default backend
  tailortune generate --input prefs.csv --out output

  # Pairwise favorites joined against a genre dictionary
  tailortune generate --pairwise --input subjects.csv --dictionary genres.txt

  # Check the prompts without synthesizing
  tailortune prompt --input prefs.csv

  # Listen to everything generated so far
  tailortune preview --out output`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return err
		}
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		log = logger.New(logger.Config{
			Writer:      cmd.ErrOrStderr(),
			Format:      cfg.LogFormat,
			Environment: cfg.Environment,
			Level:       logger.ParseLevel(cfg.LogLevel),
		})
		return nil
	},
}

// Execute runs the CLI with ctx as the root context and reports a failure
// once: through the logger when it is set up, on stderr otherwise.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if log != nil {
		log.Error("Command failed", slog.Any("error", xerrors.New(err)))
	} else {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(dictCmd)
	rootCmd.AddCommand(finetuneCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(previewCmd)
}
