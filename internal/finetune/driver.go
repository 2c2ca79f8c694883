package finetune

import (
	"context"
	"os"

	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Driver runs one fine-tuning job end to end. Any failure aborts the run.
type Driver struct {
	Config  Config
	Trainer Trainer
	Logger  *logger.Logger
}

// Run validates the dataset, trains, then archives the checkpoint directory.
// It returns the archive path.
func (d *Driver) Run(ctx context.Context) (string, error) {
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	if d.Trainer == nil {
		return "", errors.Validation("no trainer configured")
	}
	cfg := d.Config

	ds, err := OpenDataset(cfg.CSVPath, cfg.AudioFolder, cfg.SampleRate, cfg.Duration)
	if err != nil {
		return "", err
	}
	log.Info("Dataset loaded", "csv", cfg.CSVPath, "clips", ds.Len())

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", errors.FileSystem(err, "create %s", cfg.OutputDir)
	}

	job := Job{
		Model:      cfg.Model,
		Dataset:    ds,
		LR:         cfg.LR,
		BatchSize:  cfg.BatchSize,
		MaxSteps:   cfg.MaxSteps,
		OutputDir:  cfg.OutputDir,
		SampleRate: cfg.SampleRate,
		Duration:   cfg.Duration,
	}
	if err := d.Trainer.Train(ctx, job); err != nil {
		return "", err
	}

	archive, err := Archive(cfg.OutputDir)
	if err != nil {
		return "", err
	}
	log.Info("Checkpoints archived", "path", archive)
	return archive, nil
}
