package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "TAILORTUNE_"

// Config holds runtime configuration, loaded from environment variables.
type Config struct {
	// Output
	OutputDir  string
	LedgerPath string // empty disables the run ledger

	// Logging
	Environment string
	LogLevel    string
	LogFormat   string // json or pretty, empty = auto

	// Synthesis
	SynthBackend string // acestep, localai, command, tone
	MaxNewTokens int
	DoSample     bool

	// ACE-Step connection
	ACEStepAPIURL         string
	ACEStepAPIKey         string
	ACEStepOutputDir      string
	ACEStepInferenceSteps int
	ACEStepAudioFormat    string

	// LocalAI sound generation
	LocalAIURL   string
	LocalAIModel string

	// External MusicGen script
	SynthCommand string

	// Ollama (optional track titles)
	OllamaURL   string
	OllamaModel string

	// Fine-tuning
	TrainCommand string

	// Preview server
	PreviewPort      int
	PreviewCrossfade time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// Call godotenv.Load before Load to pick up a .env file.
func Load() Config {
	return Config{
		OutputDir:  envStr("OUTPUT_DIR", "."),
		LedgerPath: envStr("LEDGER_PATH", "tailortune.db"),

		Environment: envStr("ENV", "development"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		LogFormat:   envStr("LOG_FORMAT", ""),

		SynthBackend: envStr("SYNTH_BACKEND", "acestep"),
		MaxNewTokens: envInt("MAX_NEW_TOKENS", 1024),
		DoSample:     envBool("DO_SAMPLE", true),

		ACEStepAPIURL:         envStr("ACESTEP_API_URL", "http://localhost:8000"),
		ACEStepAPIKey:         envStr("ACESTEP_API_KEY", ""),
		ACEStepOutputDir:      envStr("ACESTEP_OUTPUT_DIR", "/acestep-outputs"),
		ACEStepInferenceSteps: envInt("ACESTEP_INFERENCE_STEPS", 50),
		ACEStepAudioFormat:    envStr("ACESTEP_AUDIO_FORMAT", "wav"),

		LocalAIURL:   envStr("LOCALAI_URL", "http://localhost:8080"),
		LocalAIModel: envStr("LOCALAI_MODEL", "facebook/musicgen-small"),

		SynthCommand: envStr("SYNTH_COMMAND", "musicgen"),

		OllamaURL:   envStr("OLLAMA_URL", ""),
		OllamaModel: envStr("OLLAMA_MODEL", "qwen3:8b"),

		TrainCommand: envStr("TRAIN_COMMAND", "python3 -m audiocraft_finetune"),

		PreviewPort:      envInt("PREVIEW_PORT", 8090),
		PreviewCrossfade: time.Duration(envFloat("PREVIEW_CROSSFADE", 4) * float64(time.Second)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
