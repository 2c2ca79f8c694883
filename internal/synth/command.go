package synth

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Command runs an external MusicGen script once per prompt. The script is
// called as
//
//	<command...> --description PROMPT --duration SECS --max-new-tokens N [--no-sample] --output FILE.wav
//
// and must leave a WAV file at FILE.wav.
type Command struct {
	argv []string
	opts Options
	log  *logger.Logger
}

// NewCommand splits command on whitespace to build the argument vector.
func NewCommand(command string, opts Options, log *logger.Logger) *Command {
	if log == nil {
		log = logger.Discard()
	}
	return &Command{argv: strings.Fields(command), opts: opts, log: log}
}

func (c *Command) Synthesize(ctx context.Context, prompt string) (Clip, error) {
	if err := checkPrompt(prompt); err != nil {
		return Clip{}, err
	}
	if len(c.argv) == 0 {
		return Clip{}, errors.Validation("no synthesis command configured")
	}

	dir, err := os.MkdirTemp("", "tailortune-musicgen-")
	if err != nil {
		return Clip{}, errors.FileSystem(err, "create work dir")
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "out.wav")

	args := append([]string(nil), c.argv[1:]...)
	args = append(args,
		"--description", prompt,
		"--duration", strconv.Itoa(c.opts.Seconds()),
		"--max-new-tokens", strconv.Itoa(c.opts.MaxNewTokens),
	)
	if !c.opts.DoSample {
		args = append(args, "--no-sample")
	}
	args = append(args, "--output", out)

	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	c.log.Debug("Running synthesis command", "bin", c.argv[0], "args", len(args))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Clip{}, errors.External(err, "musicgen: %s", strings.TrimSpace(string(output)))
	}

	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		return Clip{}, errors.New(errors.CodeExternal, "musicgen produced no output file")
	}
	clip, err := audio.ReadWAV(out)
	if err != nil {
		return Clip{}, errors.External(err, "read musicgen output")
	}
	return clip, nil
}
