// Package finetune drives an external MusicGen fine-tuning run over a small
// labeled audio dataset and archives the resulting checkpoints.
package finetune

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// Config is the fine-tuning run configuration.
type Config struct {
	Model       string  `yaml:"model"`
	LR          float64 `yaml:"lr"`
	BatchSize   int     `yaml:"batch_size"`
	MaxSteps    int     `yaml:"max_steps"`
	OutputDir   string  `yaml:"output_dir"`
	SampleRate  int     `yaml:"sample_rate"`
	Duration    float64 `yaml:"duration"`
	CSVPath     string  `yaml:"csv_path"`
	AudioFolder string  `yaml:"audio_folder"`
}

// DefaultConfig returns the stock settings for a medium MusicGen run.
func DefaultConfig() Config {
	return Config{
		Model:       "medium",
		LR:          2e-5,
		BatchSize:   2,
		MaxSteps:    500,
		OutputDir:   "musicgen_finetuned",
		SampleRate:  32000,
		Duration:    10,
		CSVPath:     "musicgen_training_metadata.csv",
		AudioFolder: "audio",
	}
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.FileSystem(err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.CodeData, "parse %s", path)
	}
	return cfg, nil
}
