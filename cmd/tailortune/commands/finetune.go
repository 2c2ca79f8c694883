package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/tailortune/internal/finetune"
)

var (
	finetuneConfig string
	trainCommand   string
)

var finetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "Fine-tune MusicGen on a labeled audio dataset",
	Long: `Validate a training dataset, run the external trainer and zip the
checkpoint directory into <output_dir>.zip.

The trainer is the program in $TAILORTUNE_TRAIN_COMMAND (or --trainer). It
is called with --model, --dataset, --sample-rate, --duration, --batch-size,
--lr, --max-steps and --save-path.

Example config (finetune.yaml):
  model: medium
  lr: 0.00002
  batch_size: 2
  max_steps: 500
  output_dir: musicgen_finetuned
  sample_rate: 32000
  duration: 10
  csv_path: musicgen_training_metadata.csv
  audio_folder: audio`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ftCfg := finetune.DefaultConfig()
		if finetuneConfig != "" {
			var err error
			if ftCfg, err = finetune.LoadConfig(finetuneConfig); err != nil {
				return err
			}
		}
		if trainCommand != "" {
			cfg.TrainCommand = trainCommand
		}

		d := &finetune.Driver{
			Config:  ftCfg,
			Trainer: finetune.NewCommandTrainer(cfg.TrainCommand, log),
			Logger:  log,
		}
		archive, err := d.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), archive)
		return nil
	},
}

func init() {
	finetuneCmd.Flags().StringVar(&finetuneConfig, "config", "", "YAML run configuration")
	finetuneCmd.Flags().StringVar(&trainCommand, "trainer", "", "training command (default $TAILORTUNE_TRAIN_COMMAND)")
}
